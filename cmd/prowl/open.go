package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prowlio/prowl/internal/browser"
)

var (
	openWait        string
	openScreenshot  string
	openExtract     string
	openSessionIn   string
	openSessionOut  string
	openClickTarget string
	openTypeTarget  string
	openTypeText    string
	openBack        bool
)

var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Open a page, optionally interact, and report what happened",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		backend, err := browser.Connect(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer backend.Close(context.Background())

		if openSessionIn != "" {
			if err := backend.LoadSession(ctx, openSessionIn); err != nil {
				return fmt.Errorf("load session: %w", err)
			}
		}

		if !backend.Navigate(ctx, args[0]) {
			return fmt.Errorf("navigation to %s failed", args[0])
		}

		if openWait != "" {
			if err := backend.Wait(ctx, browser.ParseWait(openWait)); err != nil {
				logger.Warn("wait condition not met", "wait", openWait, "err", err)
			}
		}

		if openClickTarget != "" && !backend.Click(ctx, openClickTarget) {
			return fmt.Errorf("click on %q failed", openClickTarget)
		}
		if openTypeTarget != "" && !backend.Type(ctx, openTypeTarget, openTypeText) {
			return fmt.Errorf("typing into %q failed", openTypeTarget)
		}
		if openBack && !backend.Back(ctx) {
			return fmt.Errorf("back navigation failed")
		}

		title, _ := backend.Title(ctx)
		fmt.Printf("Backend: %s\nURL:     %s\nTitle:   %s\n", backend.Name(), backend.CurrentURL(), title)

		if openScreenshot != "" {
			path, err := backend.Screenshot(ctx, openScreenshot)
			if err != nil {
				return err
			}
			fmt.Printf("Saved:   %s\n", path)
		}

		if openExtract != "" {
			content, err := backend.ExtractContent(ctx, browser.ContentKind(openExtract))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(content); err != nil {
				return err
			}
		}

		if openSessionOut != "" {
			if err := backend.SaveSession(ctx, openSessionOut); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Printf("Session: %s\n", openSessionOut)
		}
		return nil
	},
}

func init() {
	f := openCmd.Flags()
	f.StringVar(&openWait, "wait", "", "wait condition: load, network-idle, navigation, a duration, or a target")
	f.StringVar(&openScreenshot, "screenshot", "", "save a screenshot to this path")
	f.StringVar(&openExtract, "extract", "", "print page content: text, html, links, forms, full")
	f.StringVar(&openSessionIn, "load-session", "", "restore cookies and storage from this file first")
	f.StringVar(&openSessionOut, "save-session", "", "save cookies and storage to this file after")
	f.StringVar(&openClickTarget, "click", "", "click this target after loading")
	f.StringVar(&openTypeTarget, "type-into", "", "type into this target after loading")
	f.StringVar(&openTypeText, "text", "", "text for --type-into")
	f.BoolVar(&openBack, "back", false, "go back to the previous page after interacting")
	rootCmd.AddCommand(openCmd)
}
