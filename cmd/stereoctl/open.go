package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"stereoctl.app/stereoctl/media"
	"stereoctl.app/stereoctl/player"
)

var (
	flagNoCheck       bool
	flagNoInteractive bool
	flagFullScreen    bool
	flagAudioMode     string
	flagAudioFile     string
)

var openCmd = &cobra.Command{
	Use:   "open FILE",
	Short: "Open a stereoscopic video file and control playback",
	Args:  cobra.ExactArgs(1),
	RunE:  openRun,
}

var openLRCmd = &cobra.Command{
	Use:   "open-lr LEFT RIGHT",
	Short: "Open a separate left/right eye file pair and control playback",
	Args:  cobra.ExactArgs(2),
	RunE:  openLRRun,
}

func init() {
	for _, c := range []*cobra.Command{openCmd, openLRCmd} {
		c.Flags().BoolVar(&flagNoCheck, "no-check", false, "Skip the video container check")
		c.Flags().BoolVar(&flagNoInteractive, "no-interactive", false, "Open the file and exit without the terminal controller")
		c.Flags().BoolVarP(&flagFullScreen, "fullscreen", "f", false, "Switch the player to full screen after opening")
	}

	openLRCmd.Flags().StringVar(&flagAudioMode, "audio-mode", "none", "Audio source: none | separate | left | right")
	openLRCmd.Flags().StringVar(&flagAudioFile, "audio-file", "", "Audio file for --audio-mode separate")
}

func checkVideo(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if flagNoCheck {
		return abs, nil
	}

	if err := media.CheckVideo(abs); err != nil {
		return "", errors.Wrap(err, "checking media file")
	}

	return abs, nil
}

func openRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	abs, err := checkVideo(args[0])
	if err != nil {
		return err
	}

	if !flagNoInteractive {
		quietConsole()
	}

	ctrl, err := connectController(ctx, logScreen{log: &logger})
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()

	if err := ctrl.OpenFile(ctx, abs); err != nil {
		return err
	}

	return afterOpen(ctx, ctrl, abs)
}

func openLRRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mode, err := player.ParseAudioMode(flagAudioMode)
	if err != nil {
		return err
	}

	left, err := checkVideo(args[0])
	if err != nil {
		return err
	}

	right, err := checkVideo(args[1])
	if err != nil {
		return err
	}

	audio := flagAudioFile
	if audio != "" {
		if audio, err = filepath.Abs(audio); err != nil {
			return err
		}
		if _, err := os.Stat(audio); err != nil {
			return errors.Wrap(err, "checking audio file")
		}
		if !flagNoCheck {
			if err := media.CheckAudio(audio); err != nil {
				return errors.Wrap(err, "checking audio file")
			}
		}
	}

	if !flagNoInteractive {
		quietConsole()
	}

	ctrl, err := connectController(ctx, logScreen{log: &logger})
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()

	if err := ctrl.OpenLeftRightFiles(ctx, left, right, mode, audio); err != nil {
		return err
	}

	return afterOpen(ctx, ctrl, left)
}

func afterOpen(ctx context.Context, ctrl *player.Controller, title string) error {
	if flagFullScreen {
		if err := ctrl.EnterFullScreen(ctx); err != nil {
			return err
		}
	}

	if flagNoInteractive {
		return nil
	}

	return runInteractive(ctx, ctrl, title)
}
