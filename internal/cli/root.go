// Package cli implements the gotiff command line.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/paulmatencio/s3c/gLog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tingold/gotiff"
	"github.com/tingold/gotiff/internal/source"
)

var (
	config   string
	loglevel int
	strict   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "gotiff",
	Short:         "Decode baseline TIFF images and inspect their tags",
	Long:          ``,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if gLog.Error != nil {
			gLog.Error.Println(err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&loglevel, "loglevel", "l", 0, "Output level of logs (1: error, 2: Warning, 3: Info , 4 Trace)")
	rootCmd.PersistentFlags().StringVarP(&config, "config", "c", "", "config file; default $HOME/.gotiff/config.yaml")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "fail on any decode diagnostic")
	viper.BindPFlag("logging.log_level", rootCmd.PersistentFlags().Lookup("loglevel"))
	viper.BindPFlag("decode.strict", rootCmd.PersistentFlags().Lookup("strict"))
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if config != "" {
		// Use config file from the application flag.
		viper.SetConfigFile(config)
	} else {
		viper.AddConfigPath("/etc/gotiff")
		if home, err := homedir.Dir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".gotiff"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("logging.output", "terminal")
	viper.SetDefault("http.timeout", "30s")

	viper.AutomaticEnv() // read in environment variables that match
	// If a config file is found, read it in.
	readErr := viper.ReadInConfig()

	gLog.InitLog(rootCmd.Name(), viper.GetInt("logging.log_level"), viper.GetString("logging.output"))

	if readErr == nil {
		gLog.Trace.Printf("Using config file: %s", viper.ConfigFileUsed())
	} else if config != "" {
		log.Printf("Error %v reading config file %s", readErr, config)
	}
}

// decodeOptions builds decode options from the configuration.
func decodeOptions() gotiff.Options {
	return gotiff.Options{
		LimitPixels: viper.GetInt("decode.limit_pixels"),
		Strict:      viper.GetBool("decode.strict"),
		Warnf:       gLog.Warning.Printf,
	}
}

// sourceConfig builds input loading settings from the configuration.
func sourceConfig() source.Config {
	return source.Config{
		HTTPTimeout: viper.GetDuration("http.timeout"),
		S3: source.S3Config{
			Region:    viper.GetString("s3.region"),
			Endpoint:  viper.GetString("s3.url"),
			AccessKey: viper.GetString("credential.access_key_id"),
			SecretKey: viper.GetString("credential.secret_access_key"),
		},
	}
}

// loadInput loads args[0] and logs where it came from.
func loadInput(ctx context.Context, input string) ([]byte, error) {
	buf, err := source.Load(ctx, input, sourceConfig())
	if err != nil {
		return nil, err
	}
	gLog.Trace.Printf("Loaded %d bytes from %s input %s", len(buf), source.Kind(input), input)
	return buf, nil
}
