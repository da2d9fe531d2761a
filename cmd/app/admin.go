package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/starford/mindmaps/internal"
	"github.com/starford/mindmaps/internal/admin"
)

type adminAction func(ctx context.Context, cmd *cli.Command, mgr *admin.Manager) error

// withManager opens the database for an admin subcommand and closes it after.
func withManager(fn adminAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		mgr, closeDB, err := internal.OpenAdmin(ctx, os.Stdout, internal.WithConfig(cfg))
		if err != nil {
			return err
		}
		defer closeDB()
		return fn(ctx, cmd, mgr)
	}
}

func parseIDs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one id is required")
	}
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(cmd *cli.Command) (int64, error) {
	if cmd.Args().Len() != 1 {
		return 0, fmt.Errorf("exactly one id is required")
	}
	ids, err := parseIDs(cmd.Args().Slice())
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func forceFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "force",
		Usage: "Delete without a dry run",
	}
}

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Inspect and repair the database",
		Commands: []*cli.Command{
			{
				Name:  "users",
				Usage: "List users with their map ids",
				Action: withManager(func(ctx context.Context, _ *cli.Command, mgr *admin.Manager) error {
					return mgr.ViewUsers(ctx)
				}),
			},
			{
				Name:  "maps",
				Usage: "List mind maps with their owners",
				Action: withManager(func(ctx context.Context, _ *cli.Command, mgr *admin.Manager) error {
					return mgr.ViewMaps(ctx)
				}),
			},
			{
				Name:  "all",
				Usage: "List users and mind maps",
				Action: withManager(func(ctx context.Context, _ *cli.Command, mgr *admin.Manager) error {
					return mgr.ViewAll(ctx)
				}),
			},
			{
				Name:  "export",
				Usage: "Export the database to JSON or CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: admin.FormatJSON, Usage: "json or csv"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (timestamped name when empty)"},
				},
				Action: withManager(func(ctx context.Context, cmd *cli.Command, mgr *admin.Manager) error {
					_, err := mgr.Export(ctx, cmd.String("format"), cmd.String("output"))
					return err
				}),
			},
			{
				Name:      "delete-users",
				Usage:     "Delete users and their maps",
				ArgsUsage: "ID [ID...]",
				Flags:     []cli.Flag{forceFlag()},
				Action: withManager(func(ctx context.Context, cmd *cli.Command, mgr *admin.Manager) error {
					ids, err := parseIDs(cmd.Args().Slice())
					if err != nil {
						return err
					}
					_, _, err = mgr.DeleteUsers(ctx, ids, cmd.Bool("force"))
					return err
				}),
			},
			{
				Name:      "delete-maps",
				Usage:     "Delete mind maps",
				ArgsUsage: "ID [ID...]",
				Flags:     []cli.Flag{forceFlag()},
				Action: withManager(func(ctx context.Context, cmd *cli.Command, mgr *admin.Manager) error {
					ids, err := parseIDs(cmd.Args().Slice())
					if err != nil {
						return err
					}
					_, err = mgr.DeleteMaps(ctx, ids, cmd.Bool("force"))
					return err
				}),
			},
			{
				Name:      "set-password",
				Usage:     "Replace a user's password",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("MINDMAPS_NEW_PASSWORD")},
				},
				Action: withManager(func(ctx context.Context, cmd *cli.Command, mgr *admin.Manager) error {
					id, err := parseID(cmd)
					if err != nil {
						return err
					}
					return mgr.SetPassword(ctx, id, cmd.String("password"))
				}),
			},
			{
				Name:      "set-email",
				Usage:     "Change a user's email",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
				},
				Action: withManager(func(ctx context.Context, cmd *cli.Command, mgr *admin.Manager) error {
					id, err := parseID(cmd)
					if err != nil {
						return err
					}
					return mgr.SetEmail(ctx, id, cmd.String("email"))
				}),
			},
			{
				Name:      "rename-map",
				Usage:     "Change a mind map's title",
				ArgsUsage: "MAP_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
				},
				Action: withManager(func(ctx context.Context, cmd *cli.Command, mgr *admin.Manager) error {
					id, err := parseID(cmd)
					if err != nil {
						return err
					}
					return mgr.RenameMap(ctx, id, cmd.String("title"))
				}),
			},
		},
	}
}
