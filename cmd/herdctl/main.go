package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/benmeehan/herd-proxy/internal/constants"
	"github.com/benmeehan/herd-proxy/internal/utils"
	"github.com/benmeehan/herd-proxy/pkg/file"
	"github.com/benmeehan/herd-proxy/pkg/herdclient"
	"github.com/rs/zerolog"
)

// herdctl sends one request to a herd server and prints the reply, e.g.
//
//	herdctl -server Goloman IAMAT kiwi.cs.ucla.edu +34.068930-118.445127 1621464827.959498503
//	herdctl -addr 127.0.0.1:17920 WHATSAT kiwi.cs.ucla.edu 10 5
func main() {
	configPath := flag.String("config", "configs/config.yaml", "herd configuration used to resolve -server")
	serverID := flag.String("server", "", "server id to contact")
	addr := flag.String("addr", "", "address to contact, overrides -server")
	timeout := flag.Duration("timeout", 10*time.Second, "time allowed for the whole request")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if flag.NArg() == 0 {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-server id | -addr host:port] <request...>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	line := strings.Join(flag.Args(), " ")

	target := *addr
	if target == "" {
		if *serverID == "" {
			log.Fatal().Msg("One of -server or -addr is required")
		}
		config, err := utils.LoadConfig(*configPath, file.NewFileService())
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
		}
		topo, err := config.Topology()
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid herd table")
		}
		resolved, ok := topo.Address(*serverID)
		if !ok {
			log.Fatal().Str("server", *serverID).Strs("known", topo.IDs()).Msg("Unknown server id")
		}
		target = resolved
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := herdclient.NewClient(&net.Dialer{}, *timeout, constants.MaxReplyBytes)
	reply, err := client.Request(ctx, target, line)
	if err != nil {
		log.Error().Err(err).Str("address", target).Msg("Request failed")
		os.Exit(1)
	}

	fmt.Print(reply)
	if strings.HasPrefix(reply, constants.FailurePrefix) {
		os.Exit(1)
	}
}
