package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/stackviz/server"
)

func serveCommand(args []string, stdout io.Writer) error {
	fs, g := newFlagSet("serve")
	addr := fs.String("addr", "", "HTTP listen address (default from config)")
	grpcAddr := fs.String("grpc-addr", "", "gRPC health listen address (default from config, empty disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := g.load()
	if err != nil {
		return err
	}
	if *addr == "" {
		*addr = m.Server.Addr
	}
	if *grpcAddr == "" {
		*grpcAddr = m.Server.GRPCAddr
	}

	in, err := m.NewInterpreter()
	if err != nil {
		return err
	}
	b, err := openBackend(m)
	if err != nil {
		return err
	}
	defer b.Close()

	srv := server.New(in, b,
		server.WithWorkers(m.Server.Workers),
		server.WithGraphDefaults(graphDefaults(m)),
	)

	errs := make(chan error, 2)
	if *grpcAddr != "" {
		lis, err := net.Listen("tcp", *grpcAddr)
		if err != nil {
			srv.Stop()
			return fmt.Errorf("cannot listen on %s: %w", *grpcAddr, err)
		}
		go func() { errs <- srv.ServeGRPC(lis) }()
	}
	go func() { errs <- srv.ListenAndServe(*addr) }()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		log.Noticef("received %s, shutting down", sig)
		srv.Stop()
		return nil
	case err := <-errs:
		srv.Stop()
		return err
	}
}
