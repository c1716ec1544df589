package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/internal/cli"
	"github.com/nerdneilsfield/go-okapi/internal/logger"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/formatconversion"
	"github.com/nerdneilsfield/go-okapi/pkg/steps/leverage"
)

// Version information
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	log := logger.NewLogger(false)
	defer func() {
		_ = log.Sync()
	}()

	// 写入 TMX 头的工具版本
	formatconversion.ToolVersion = Version
	leverage.ToolVersion = Version

	rootCmd := cli.NewRootCommand(Version, Commit, BuildDate)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error("执行命令失败", zap.Error(err))
		os.Exit(1)
	}
}
