package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erikmagkekse/vsphere-nfs-ds/model"
	"github.com/erikmagkekse/vsphere-nfs-ds/reconcile"
	"github.com/erikmagkekse/vsphere-nfs-ds/server"
	"github.com/erikmagkekse/vsphere-nfs-ds/vsphere"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	level := zerolog.InfoLevel
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		if parsed, err := zerolog.ParseLevel(l); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:    model.ToolName,
		Usage:   "mount or unmount an NFS datastore on an ESXi host",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Commands: []*cli.Command{
			applyCommand(),
			serveCommand(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		// fail output carries the remote error text verbatim
		out, _ := json.Marshal(map[string]string{"msg": err.Error()})
		fmt.Println(string(out))
		os.Exit(1)
	}
}

func applyCommand() *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "reconcile one NFS datastore mount and print the JSON result",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "hostname", Usage: "vCenter or ESXi API endpoint", Sources: cli.EnvVars("VSPHERE_HOSTNAME"), Required: true},
			&cli.StringFlag{Name: "username", Usage: "API username", Sources: cli.EnvVars("VSPHERE_USERNAME"), Required: true},
			&cli.StringFlag{Name: "password", Usage: "API password (prompted if omitted)", Sources: cli.EnvVars("VSPHERE_PASSWORD")},
			&cli.BoolFlag{Name: "insecure", Usage: "skip TLS certificate verification", Sources: cli.EnvVars("VSPHERE_INSECURE")},
			&cli.StringFlag{Name: "datacenter", Usage: "datacenter name (default datacenter if omitted)", Sources: cli.EnvVars("VSPHERE_DATACENTER")},
			&cli.StringFlag{Name: "esxi-hostname", Usage: "ESXi host as listed in the inventory", Required: true},
			&cli.StringFlag{Name: "datastore-name", Usage: "datastore name as seen on the host", Required: true},
			&cli.StringFlag{Name: "nfs-server", Usage: "hostname, FQDN or IP of the NFS server", Required: true},
			&cli.StringFlag{Name: "nfs-path", Usage: "exported path on the NFS server", Required: true},
			&cli.BoolFlag{Name: "nfs-readonly", Usage: "mount the datastore read only"},
			&cli.StringFlag{Name: "state", Usage: "desired state: present or absent", Required: true},
			&cli.BoolFlag{Name: "dry-run", Usage: "report what would change without mutating"},
		},
		Action: runApply,
	}
}

func runApply(ctx context.Context, cmd *cli.Command) error {
	state, err := model.ParseState(cmd.String("state"))
	if err != nil {
		return err
	}

	password := cmd.String("password")
	if password == "" {
		password, err = promptPassword(cmd.String("username"))
		if err != nil {
			return err
		}
	}

	client, err := vsphere.Dial(ctx, vsphere.Endpoint{
		Hostname:   cmd.String("hostname"),
		Username:   cmd.String("username"),
		Password:   password,
		Insecure:   cmd.Bool("insecure"),
		Datacenter: cmd.String("datacenter"),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("session logout failed")
		}
	}()

	res, err := reconcile.Reconcile(ctx, client, state, reconcile.Request{
		ESXiHostname:  cmd.String("esxi-hostname"),
		DatastoreName: cmd.String("datastore-name"),
		NFSServer:     cmd.String("nfs-server"),
		NFSPath:       cmd.String("nfs-path"),
		ReadOnly:      cmd.Bool("nfs-readonly"),
		DryRun:        cmd.Bool("dry-run"),
	})
	if err != nil {
		return err
	}

	out, err := json.Marshal(res)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func promptPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password given and stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "password for %s: ", user)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the reconciliation HTTP server",
		Action: func(ctx context.Context, _ *cli.Command) error {
			log.Info().Str("version", version).Str("commit", commit).Msg("starting vsphere-nfs-ds server")

			cfg, err := env.ParseAs[model.ServerConfig]()
			if err != nil {
				return fmt.Errorf("parsing server config: %w", err)
			}

			s := server.New(&cfg, version, commit)
			s.Start(ctx)

			<-ctx.Done()
			log.Info().Msg("shutting down")
			return nil
		},
	}
}
