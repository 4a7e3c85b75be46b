package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yaoapp/kun/log"

	"github.com/guardianbridge/guardianbridge/config"
	"github.com/guardianbridge/guardianbridge/guard"
	"github.com/guardianbridge/guardianbridge/moderation/classifier"
	"github.com/guardianbridge/guardianbridge/moderation/store"
	"github.com/guardianbridge/guardianbridge/proxy"
	"github.com/guardianbridge/guardianbridge/share"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gateway",
	Long:  `Start the gateway`,
	Run: func(cmd *cobra.Command, args []string) {
		Boot()

		mode := ""
		if config.Conf.Mode == "development" {
			mode = color.RedString("development")
		}
		fmt.Println(color.GreenString("\nGuardianBridge v%s %s", share.VERSION, mode))
		fmt.Println(color.WhiteString("---------------------------------"))
		fmt.Println(color.GreenString("Profiles:  %s", config.Conf.ProfilesRoot))
		fmt.Println(color.GreenString("Keywords:  %s", config.Conf.KeywordsFile))
		fmt.Println(color.GreenString("Listening: http://%s:%d", config.Conf.Host, config.Conf.Port))
		fmt.Println(color.WhiteString("---------------------------------"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		classifier.Schedule(ctx, config.Conf.ProfilesRoot,
			time.Duration(config.Conf.SchedulerInterval)*time.Minute)
		guard.Start(ctx, time.Duration(config.Conf.GuardInterval)*time.Second)

		router := gin.New()
		router.Use(gin.Recovery())
		proxy.Attach(router)

		server := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", config.Conf.Host, config.Conf.Port),
			Handler: router,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("start: %s", err.Error())
				os.Exit(1)
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		fmt.Println(color.YellowString("\nShutting down..."))
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown: %s", err.Error())
		}

		proxy.ShutdownPool()
		store.CloseAll()
		config.CloseLog()
		fmt.Println(color.GreenString("Service stopped"))
	},
}
