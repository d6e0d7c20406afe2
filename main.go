//    Copyright 2026 HydraIP Developers
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/hydraip/DeviceKit/pkg/logging"
	"github.com/hydraip/DeviceKit/pkg/server"
	"github.com/hydraip/DeviceKit/service/conn"
	"github.com/hydraip/DeviceKit/service/device"
	"github.com/hydraip/DeviceKit/service/update"
)

const (
	projectName        = "HydraIP DeviceKit"
	defaultMetricsAddr = "0.0.0.0:7201"
	defaultCmdTimeout  = time.Second * 30
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var nameFlag string
	var develFlag bool
	var connNames []string
	var updateLink string
	var metadataURL string
	var metricsAddr string
	var mqttBroker string
	var mqttTopic string

	pflag.StringVarP(&levelFlag, "level", "l", "debug", "Set log level")
	pflag.StringVar(&nameFlag, "name", "", "Device name used in logs and errors")
	pflag.BoolVar(&develFlag, "devel", false, "Use the no-op update policy (no device mutation)")
	pflag.StringSliceVar(&connNames, "conn", []string{"devel"}, "Names of stub connections to attach (real transports are embedder supplied)")
	pflag.StringVar(&updateLink, "update-link", "", "Location of the update artifact")
	pflag.StringVar(&metadataURL, "metadata-url", "", "Location of the build metadata")
	pflag.StringVar(&metricsAddr, "metrics-addr", defaultMetricsAddr, "Address the metrics/health HTTP server listens on")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker to ship logs to (empty disables shipping)")
	pflag.StringVar(&mqttTopic, "mqtt-topic", "devicekit/logs", "MQTT topic to ship logs to")
	pflag.Parse()
	args := pflag.Args()
	if len(args) == 0 {
		Exitf("Expected an action: check|update|reset|cmd <shell command>\n")
	}

	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())

	var logOut io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if mqttBroker != "" {
		client := paho.NewClient(paho.NewClientOptions().
			AddBroker(mqttBroker).
			SetClientID(fmt.Sprintf("devicekit-%d", os.Getpid())))
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			Exitf("Failed to connect to MQTT broker '%s': %v\n", mqttBroker, token.Error())
		}
		mqttWriter := logging.NewMQTTWriter(ctx)
		mqttWriter.SetDestination(mqttTopic, client)
		mqttWriter.Enable(true)
		logOut = logging.NewMultiWriter(logOut, mqttWriter)
	}
	logger := zerolog.New(logOut).With().Timestamp().Logger().Level(level)

	conns := make([]conn.Conn, 0, len(connNames))
	for _, name := range connNames {
		conns = append(conns, &conn.Stub{Name: name})
	}
	dev := device.New(nameFlag, logger, conns...)

	var updater update.Updater
	if develFlag {
		updater = update.NewDevel(logger)
	} else {
		updater, err = update.NewHydra(update.Config{
			UpdateLink:  updateLink,
			MetadataURL: metadataURL,
		}, update.Dependencies{
			Log:    logger,
			Device: dev,
		})
		if err != nil {
			Exitf("Failed to initialize updater: %v\n", err)
		}
	}

	httpServer, err := server.New(server.Config{
		Addr: metricsAddr,
	}, logger)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(ctx) })
	g.Go(func() error {
		defer cancel()
		return runAction(ctx, logger, dev, updater, args)
	})
	if err := g.Wait(); err != nil {
		Exitf("Run failed: %v\n", err)
	}
}

// runAction performs a single action against the device.
func runAction(ctx context.Context, logger zerolog.Logger, dev *device.Device, updater update.Updater, args []string) error {
	switch args[0] {
	case "check":
		updated, err := updater.IsUpdated(ctx)
		if err != nil {
			return err
		}
		latest, err := updater.LatestBuild(ctx)
		if err != nil {
			return err
		}
		current, err := updater.CurrentFirmwareVersion(ctx)
		if err != nil {
			return err
		}
		logger.Info().
			Bool("updated", updated).
			Str("latest", latest).
			Str("firmware", current).
			Msg("Freshness check done")
		return nil
	case "update":
		return updater.Update(ctx, "")
	case "reset":
		return updater.ResetConfig(ctx)
	case "cmd":
		if len(args) < 2 {
			return fmt.Errorf("cmd needs a shell command argument")
		}
		out, err := dev.Cmd(ctx, conn.Request{Cmd: args[1], Timeout: defaultCmdTimeout})
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	default:
		return fmt.Errorf("unknown action '%s'", args[0])
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
