package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/cwsl/lora_pyramid/iq_extensions/lora"
)

const Version = "v1.0.0"

func main() {
	var (
		configFile = pflag.StringP("config", "c", "config.yaml", "Configuration file")
		inputPath  = pflag.StringP("input", "i", "", "IQ input path, overrides input.path from the config (\"-\" for stdin)")
		listExts   = pflag.Bool("list-extensions", false, "List available IQ extensions and exit")
		quiet      = pflag.BoolP("quiet", "q", false, "Quiet mode - minimal output")
		version    = pflag.BoolP("version", "v", false, "Print version and exit")
	)

	pflag.Parse()

	if *version {
		fmt.Printf("lora_pyramid %s\n", Version)
		os.Exit(0)
	}

	registry := NewIQExtensionRegistry()
	registerBuiltinExtensions(registry)

	if *listExts {
		for _, info := range registry.List() {
			fmt.Printf("%s %s - %s\n", info.Name, info.Version, info.Description)
		}
		os.Exit(0)
	}

	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *inputPath != "" {
		config.Input.Path = *inputPath
	}
	if *quiet {
		config.Logging.Quiet = true
	}
	if config.Logging.Quiet {
		log.SetOutput(io.Discard)
	}

	log.Printf("lora_pyramid %s - LoRa pyramid demodulator", Version)
	log.Printf("Input: %s (%d Hz sample rate, %d Hz bandwidth)",
		config.Input.Path, config.Input.SampleRate, config.Input.Bandwidth)

	run(config, registry)
}

// spreadingFactor resolves the configured spreading factor for topic naming
func spreadingFactor(config *Config) int {
	switch sf := config.Demod.Params["spreading_factor"].(type) {
	case float64:
		return int(sf)
	case int:
		return sf
	}
	return lora.DefaultDemodConfig().SpreadingFactor
}

func run(config *Config, registry *IQExtensionRegistry) {
	ext, err := registry.Create(config.Demod.Extension, lora.IQExtensionParams{
		SampleRate: config.Input.SampleRate,
		Bandwidth:  config.Input.Bandwidth,
	}, config.Demod.Params)
	if err != nil {
		log.Fatalf("Failed to create extension %q: %v", config.Demod.Extension, err)
	}

	reader, err := OpenIQReader(config.Input.Path, config.Input.ChunkSize)
	if err != nil {
		log.Fatalf("Failed to open input: %v", err)
	}
	defer reader.Close()

	// Initialize MQTT publisher
	var mqttPublisher *MQTTPublisher
	if config.MQTT.Enabled {
		mqttPublisher, err = NewMQTTPublisher(&config.MQTT, spreadingFactor(config))
		if err != nil {
			log.Fatalf("Failed to initialize MQTT: %v", err)
		}
		defer mqttPublisher.Disconnect()
	}

	// Start Prometheus metrics
	if config.Prometheus.Enabled {
		source, ok := ext.(interface{ Stats() lora.Stats })
		if !ok {
			log.Fatalf("Extension %q does not expose stats for Prometheus", ext.GetName())
		}
		metrics := NewPrometheusMetrics()
		metrics.Start(config.Prometheus.Listen,
			time.Duration(config.Prometheus.UpdateInterval)*time.Second,
			source.Stats)
		defer metrics.Stop()
	}

	iqChan := make(chan lora.IQSample, 4)
	resultChan := make(chan []byte, 16)
	stopChan := make(chan struct{})

	if err := ext.Start(iqChan, resultChan); err != nil {
		log.Fatalf("Failed to start extension: %v", err)
	}

	// Reader feeds the extension until EOF or shutdown
	readerDone := make(chan error, 1)
	go func() {
		readerDone <- reader.Stream(iqChan, stopChan)
	}()

	// Result consumer prints each packet envelope and mirrors it to MQTT
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for payload := range resultChan {
			fmt.Println(string(payload))
			if mqttPublisher != nil {
				if err := mqttPublisher.PublishResult(payload); err != nil {
					log.Printf("MQTT: Publish failed: %v", err)
				}
			}
		}
	}()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		close(stopChan)
	case err := <-readerDone:
		if err != nil {
			log.Printf("Input error: %v", err)
		} else {
			log.Println("Input exhausted")
		}
		// Give in-flight results a moment to drain before stopping
		time.Sleep(100 * time.Millisecond)
	}

	if err := ext.Stop(); err != nil {
		log.Printf("Extension stop error: %v", err)
	}
	close(resultChan)
	<-consumerDone

	log.Println("Shutdown complete")
}
