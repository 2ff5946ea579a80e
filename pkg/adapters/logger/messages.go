package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Decode pipeline
		"Fetching %s":                          "%s を取得中",
		"Track ready: %s, %.2fs, %d progressive samples": "トラック準備完了: %s, %.2f秒, プログレッシブサンプル %d 件",
		"Decoder configured: %s (%dx%d)":       "デコーダーを設定しました: %s (%dx%d)",
		"Submitted %d chunks":                  "%d チャンクを送信しました",
		"Decoded %d frames in %d ms":           "%d フレームを %d ms でデコードしました",
		"Flushing decoder":                     "デコーダーをフラッシュ中",
		"Draining: %d chunks pending":          "ドレイン中: 残り %d チャンク",
		"Decode pipeline failed: %s":           "デコードパイプラインが失敗しました: %s",
		"Failed to save decoded frame %d: %s":  "デコードフレーム %d の保存に失敗しました: %s",
		"Failed to save decode metadata: %s":   "デコードメタデータの保存に失敗しました: %s",
		"Falling back to direct playback: %v":  "直接再生にフォールバックします: %v",
		"No fetcher configured, skipping frame decode": "フェッチャーが設定されていないため、フレームデコードをスキップします",

		// Scrub controller
		"Progress %.3f -> target %.3fs":        "進捗 %.3f -> ターゲット %.3f秒",
		"Transition finished at %.3fs":         "トランジションが %.3f秒 で完了しました",
		"Direct seek to %.3fs":                 "%.3f秒 へ直接シーク",
		"Rate-modulated play at %.2fx":         "%.2f倍速で再生中",

		// Player
		"Player ready: %d frames":              "プレイヤー準備完了: %d フレーム",
		"Surface resized to %dx%d":             "サーフェスを %dx%d にリサイズしました",
	})
}
