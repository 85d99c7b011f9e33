package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Regsync/internal/daemon"
	"github.com/Ning0612/Regsync/internal/logger"
	"github.com/Ning0612/Regsync/internal/service"
	"github.com/Ning0612/Regsync/internal/trigger"
)

func newDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduled-trigger daemon",
	}

	cmd.AddCommand(newDaemonStartCommand())
	cmd.AddCommand(newDaemonStopCommand())
	cmd.AddCommand(newDaemonStatusCommand())

	return cmd
}

func newDaemonStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the trigger daemon in the foreground",
		Long: `Start the trigger daemon in the foreground. It polls for enabled
scheduled rules and records jobs when their slot comes due, until
interrupted or stopped with 'daemon stop'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath, err := daemon.DefaultPIDPath()
			if err != nil {
				return err
			}
			pidFile := daemon.NewPIDFile(pidPath)
			if err := pidFile.Write(); err != nil {
				return err
			}
			defer pidFile.Remove()

			return withService(func(ctx context.Context, svc *service.Service) error {
				d, err := service.NewDaemonService(svc)
				if err != nil {
					return err
				}
				defer d.Close()

				if err := d.Start(ctx, cfg.Trigger); err != nil {
					return err
				}
				logger.Get().Info("daemon started",
					"interval", cfg.Trigger.Interval().String(),
					"pid", os.Getpid(),
				)
				fmt.Printf("Daemon started (interval %s), press Ctrl+C to stop\n", cfg.Trigger.Interval())

				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
				sig := <-sigChan

				logger.Get().Info("daemon stopping", "signal", sig.String())
				return d.Stop()
			})
		},
	}

	return cmd
}

func newDaemonStopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running trigger daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath, err := daemon.DefaultPIDPath()
			if err != nil {
				return err
			}
			pidFile := daemon.NewPIDFile(pidPath)

			running, err := pidFile.IsRunning()
			if err != nil || !running {
				return fmt.Errorf("daemon is not running")
			}

			if err := pidFile.Kill(); err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Println("Daemon stopped")
			return nil
		},
	}

	return cmd
}

func newDaemonStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show trigger daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath, err := daemon.DefaultPIDPath()
			if err != nil {
				return err
			}
			pidFile := daemon.NewPIDFile(pidPath)

			running, err := pidFile.IsRunning()
			if err != nil || !running {
				fmt.Println("Daemon is not running")
				return nil
			}

			pid, _ := pidFile.Read()
			fmt.Printf("Daemon is running (PID %d)\n", pid)

			// Next slots for the enabled scheduled rules
			return withService(func(ctx context.Context, svc *service.Service) error {
				printNextFirings(ctx, svc)
				return nil
			})
		},
	}

	return cmd
}

// printNextFirings lists the upcoming slot per enabled scheduled rule
func printNextFirings(ctx context.Context, svc *service.Service) {
	rules, err := svc.EnabledScheduledRules(ctx)
	if err != nil || len(rules) == 0 {
		return
	}

	now := time.Now().UTC()
	fmt.Println("Scheduled rules:")
	for _, r := range rules {
		next := trigger.NextFire(*r.Trigger.Schedule, now)
		fmt.Printf("  %s: next fire %s\n", r.Name, next.Format(time.RFC3339))
	}
}
