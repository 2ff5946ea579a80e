// Package main provides localization for the scrubview CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Frame-accurate video scrubbing from normalized progress": "正規化された進捗値からフレーム精度で動画をスクラブ",

		// Scrub command
		"Scrub a video through a sequence of progress values": "進捗値の列に沿って動画をスクラブ",

		// Version command
		"Show version information":      "バージョン情報を表示",
		"scrubview (Go) version %s":     "scrubview (Go版) バージョン %s",

		// Flags
		"YAML configuration file path":                             "YAML設定ファイルのパス",
		"Directory for painted frame output":                       "描画フレームの出力ディレクトリ",
		"Number of evenly spaced progress steps":                   "等間隔の進捗ステップ数",
		"File with one progress value per line (overrides --steps)": "1行に1つの進捗値を持つファイル（--stepsを上書き）",
		"Paint surface width (default: 640)":                       "描画サーフェスの幅（デフォルト: 640）",
		"Paint surface height (default: 360)":                      "描画サーフェスの高さ（デフォルト: 360）",
		"Disable frame decoding, use direct playback only":         "フレームデコードを無効化し、直接再生のみ使用",
		"Path to ffmpeg executable":                                "ffmpeg実行ファイルのパス",
		"Seek forward directly instead of rate-modulated play":     "レート変調再生の代わりに前方へ直接シーク",
		"Enable debug output":                                      "デバッグ出力を有効化",
		"Directory for debug output":                               "デバッグ出力のディレクトリ",
		"Log level (debug, info, warn, error)":                     "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                                  "全てのログ出力を抑制",

		// Runtime messages
		"SRC argument is required":          "SRC引数が必要です",
		"Loading %s...":                     "%s を読み込み中...",
		"Ready: %d decoded frames":          "準備完了: デコード済みフレーム %d 枚",
		"Step %d: progress %.3f at %.3fs":   "ステップ %d: 進捗 %.3f、位置 %.3f秒",
		"Output saved to %s":                "出力を %s に保存しました",
		"Interrupted, shutting down...":     "中断されました。シャットダウン中...",
	})
}
