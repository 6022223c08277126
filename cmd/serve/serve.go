package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tagwise/tagwise/internal/activelearning"
	"github.com/tagwise/tagwise/internal/app"
	"github.com/tagwise/tagwise/internal/conf"
	"github.com/tagwise/tagwise/internal/httpcontroller"
	"github.com/tagwise/tagwise/internal/logger"
	"github.com/tagwise/tagwise/internal/mqtt"
	"github.com/tagwise/tagwise/internal/observability"
)

const shutdownTimeout = 30 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the annotation API and run active learning periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, settings)
		},
	}

	cmd.Flags().String("port", "", "HTTP listen port")
	cmd.Flags().Duration("interval", 0, "Active learning update interval (0 keeps the configured value)")
	_ = viper.BindPFlag("webserver.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("active_learning_config.update_interval", cmd.Flags().Lookup("interval"))

	return cmd
}

func run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("serve")
	defer app.FlushSentry(2 * time.Second)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	a, err := app.New(ctx, settings, afero.NewOsFs(), metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close datastore", logger.Error(err))
		}
	}()

	opts := []activelearning.RunnerOption{
		activelearning.WithInterval(settings.ActiveLearning.UpdateInterval),
		activelearning.WithRecorder(metrics.ActiveLearning),
		activelearning.WithSelectionCacheTTL(settings.ActiveLearning.SelectionCacheTTL),
		activelearning.WithInstanceName(settings.Main.Name),
	}

	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(mqtt.ConfigFromSettings(settings.MQTT, settings.Main.Name), metrics.MQTT)
		if err != nil {
			return err
		}
		if err := client.Connect(ctx); err != nil {
			// Paho keeps retrying in the background; publishing fails until then.
			log.Warn("MQTT broker not reachable at startup", logger.Error(err))
		}
		defer client.Disconnect()
		opts = append(opts, activelearning.WithPublisher(client, settings.MQTT.Topic))
	}

	runner := activelearning.NewRunner(a.Learner, opts...)
	runner.Start()
	defer func() {
		if err := runner.Stop(shutdownTimeout); err != nil {
			log.Warn("active learning runner did not stop cleanly", logger.Error(err))
		}
	}()

	if !settings.WebServer.Enabled {
		log.Info("web server disabled, running active learning only")
		<-ctx.Done()
		return nil
	}

	server := httpcontroller.New(settings, a.Store, a.Corpus, runner, metrics)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return server.Shutdown(shutdownTimeout)
	}
}
