package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	"github.com/echa/log"

	"gorbadome/chain/internal/app"
)

func main() {
	var (
		home      = flag.String("home", ".gorbadome", "app home directory (state is stored under <home>/app)")
		addr      = flag.String("addr", "tcp://127.0.0.1:26658", "ABCI listen address")
		transport = flag.String("transport", "socket", "ABCI transport (socket|grpc)")
	)
	flag.Parse()

	a, err := app.New(*home)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}
	defer func() { _ = a.CloseStore() }()

	srv, err := server.NewServer(*addr, *transport, a)
	if err != nil {
		log.Fatalf("create abci server: %v", err)
	}
	if err := srv.Start(); err != nil {
		log.Fatalf("start abci server: %v", err)
	}
	defer func() { _ = srv.Stop() }()

	log.Infof("gorbadomed listening on %s", *addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
