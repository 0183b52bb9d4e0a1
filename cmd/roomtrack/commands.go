package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"roomtrack/internal/core"
	"roomtrack/pkg/domain"
)

func newSeedCmd(a *app) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo dataset",
		Long:  "Seeds eight demo items and three movements. Without --reset nothing is written when items already exist.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, false, func(ctx context.Context, svc *core.Service) error {
				seed := svc.InitializeDemoData
				if reset {
					seed = svc.ResetDemoData
				}
				summary, err := seed(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear items, movements and rooms before seeding")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var tag, name, location string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := domain.ValidateNewItem(tag, name, location)
			if err != nil {
				return err
			}
			return a.run(cmd, false, func(ctx context.Context, svc *core.Service) error {
				item, err := svc.AddItem(ctx, tag, name, loc)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), item)
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "RFID tag")
	cmd.Flags().StringVar(&name, "name", "", "Item name")
	cmd.Flags().StringVar(&location, "location", "Room A", "Initial room")
	return cmd
}

func newMoveCmd(a *app) *cobra.Command {
	var itemID, to string
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move an item to the other room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, false, func(ctx context.Context, svc *core.Service) error {
				var item *domain.Item
				dest := to
				if itemID != "" {
					found, err := svc.GetItem(ctx, itemID)
					if err != nil {
						return err
					}
					item = &found
					if dest == "" {
						dest = found.CurrentLocation.Other().String()
					}
				}
				loc, err := domain.ValidateMove(item, dest)
				if err != nil {
					return err
				}
				id, err := svc.RecordMovement(ctx, item.ID, item.Name, item.RFIDTag, item.CurrentLocation, loc)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"id": id})
			})
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "Item ID")
	cmd.Flags().StringVar(&to, "to", "", "Destination room (defaults to the other room)")
	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	var tag, location string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Process an RFID read from the reader in a room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tag == "" {
				return domain.ValidationError{Field: "rfidTag", Err: domain.ErrEmptyRFIDTag}
			}
			loc, err := domain.ParseLocation(location)
			if err != nil {
				return err
			}
			return a.run(cmd, false, func(ctx context.Context, svc *core.Service) error {
				result, err := svc.ProcessScan(ctx, tag, loc)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "RFID tag read")
	cmd.Flags().StringVar(&location, "location", "Room A", "Room the reader is installed in")
	return cmd
}

func newItemsCmd(a *app) *cobra.Command {
	var table bool
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, false, func(ctx context.Context, svc *core.Service) error {
				items, err := svc.ListItems(ctx)
				if err != nil {
					return err
				}
				if table {
					return printItemTable(cmd.OutOrStdout(), items)
				}
				if items == nil {
					items = []domain.Item{}
				}
				return printJSON(cmd.OutOrStdout(), items)
			})
		},
	}
	cmd.Flags().BoolVar(&table, "table", false, "Print an aligned table instead of JSON")
	return cmd
}

func newMovementsCmd(a *app) *cobra.Command {
	var table bool
	cmd := &cobra.Command{
		Use:   "movements",
		Short: "List movements, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, false, func(ctx context.Context, svc *core.Service) error {
				movements, err := svc.ListMovements(ctx)
				if err != nil {
					return err
				}
				if table {
					return printMovementTable(cmd.OutOrStdout(), movements)
				}
				if movements == nil {
					movements = []domain.Movement{}
				}
				return printJSON(cmd.OutOrStdout(), movements)
			})
		},
	}
	cmd.Flags().BoolVar(&table, "table", false, "Print an aligned table instead of JSON")
	return cmd
}

func newRoomCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "room <room>",
		Short: "Show the items in a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			room, err := domain.ParseLocation(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, false, func(ctx context.Context, svc *core.Service) error {
				inv, err := svc.RoomInventory(ctx, room)
				if err != nil && !core.IsUnresolvedItems(err) {
					return err
				}
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
				return printJSON(cmd.OutOrStdout(), inv)
			})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of the inventory to the blob store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(ctx context.Context, svc *core.Service) error {
				result, err := svc.ExportSnapshot(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that room indexes agree with item locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, false, func(ctx context.Context, svc *core.Service) error {
				result, err := svc.CheckConsistency(ctx)
				if err != nil {
					return err
				}
				if result.Violations == nil {
					result.Violations = []domain.Violation{}
				}
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if result.HasBlocking() {
					return domain.RuleViolationError{Result: result}
				}
				return nil
			})
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Applies the embedded schema migrations to the configured PostgreSQL database. Other drivers need none.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Storage.Driver != core.StoragePostgres {
				fmt.Fprintf(cmd.OutOrStdout(), "storage driver %s has no migrations\n", a.cfg.Storage.Driver)
				return nil
			}
			if err := core.MigrateStorage(a.cfg.Storage, core.NewMigrationLogger(a.log, a.cfg.MigrateVerbose)); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			version, dirty, err := core.SchemaVersion(a.cfg.Storage)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			if dirty {
				return fmt.Errorf("schema version %d is dirty", version)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied, schema version %d\n", version)
			return nil
		},
	}
}
