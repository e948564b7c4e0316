package main

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/comalice/embedx/player"
)

// demoScene is the content served for every bundle id.
func demoScene(logger *zap.Logger) *player.Scene {
	count := 0
	return player.NewScene("").
		OnLoad(func(f *player.Frame) {
			logger.Info("scene loaded", zap.String("bundle_id", f.Bundle()))
		}).
		OnDeepLink(func(f *player.Frame, url string) {
			logger.Info("deep link", zap.String("url", url), zap.Uint64("tick", f.Tick()))
		}).
		Entity("Echo").
		On("Say", func(f *player.Frame, body string) {
			logger.Info("echo", zap.String("body", body))
		}).
		On("Shout", func(f *player.Frame, body string) {
			f.Send("Echo", "Say", strings.ToUpper(body))
		}).
		Done().
		Entity("Counter").
		On("Add", func(f *player.Frame, body string) {
			n, err := strconv.Atoi(body)
			if err != nil {
				n = 1
			}
			count += n
			logger.Info("counter", zap.Int("value", count))
		}).
		On("Reset", func(f *player.Frame, body string) { count = 0 }).
		Done().
		Entity("Keyboard").
		On("Open", func(f *player.Frame, body string) { f.OpenKeyboard(body) }).
		On("Close", func(f *player.Frame, body string) {
			logger.Info("keyboard closed", zap.String("text", f.KeyboardText()))
			f.CloseKeyboard()
		}).
		Done().
		Entity("Game").
		On("Unload", func(f *player.Frame, body string) { f.Unload() }).
		On("Exit", func(f *player.Frame, body string) {
			code, _ := strconv.Atoi(body)
			f.Quit(code)
		}).
		Done().
		MustBuild()
}
