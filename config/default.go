package config

import (
	"github.com/qtforge/cortex/pkg/constants"
	"github.com/spf13/viper"
)

func setDefaultConfig() {
	viper.SetDefault("Data.LogConfig.EnableConsole", true)
	viper.SetDefault("Data.LogConfig.ConsoleJSONFormat", false)
	viper.SetDefault("Data.LogConfig.ConsoleLevel", "debug")
	viper.SetDefault("Data.LogConfig.EnableFile", true)
	viper.SetDefault("Data.LogConfig.FileJSONFormat", true)
	viper.SetDefault("Data.LogConfig.FileLevel", "debug")
	viper.SetDefault("Data.LogConfig.FileLocation", "./cortex.log")
	viper.SetDefault("Data.Env", "prod")
	viper.SetDefault("Data.Port", "9876")
	viper.SetDefault("Data.Verbose", true)
	viper.SetDefault("Data.DB.Driver", "sqlite3")
	viper.SetDefault("Data.DB.Path", constants.DefaultSQLitePath)
	viper.SetDefault("Data.Redis.Addr", "localhost:6379")
	viper.SetDefault("Data.LLM.Model", "gpt-4o-mini")
	viper.SetDefault("Data.LLM.MaxTokens", 4096)
	viper.SetDefault("Data.LLM.Temperature", 0.2)
	viper.SetDefault("Data.Workspace.Root", "./cortex-data")
	viper.SetDefault("Data.WorkerWaitTimeout", constants.DefaultWorkerWaitTimeout)
	viper.SetDefault("Data.GracefulTimeout", constants.DefaultGracefulTimeout)
	viper.SetDefault("Data.ShutDownDelay", constants.DefaultShutDownDelay)
}
