package service

import "fmt"

// Reserved routing keywords. Both the Japanese and English forms are
// accepted; matching is done on the trimmed, lowercased text.
const (
	registerKeywordJA = "登録"
	registerKeywordEN = "register"
	cancelKeywordJA   = "キャンセル"
	cancelKeywordEN   = "cancel"
)

// User-facing reply texts.
const (
	msgGreeting = "友だち追加ありがとうございます！\n" +
		"「お風呂を準備して」「電気をつけて」のように話しかけると、登録したデバイスを操作できます。\n" +
		"まずは「登録」と送って SwitchBot トークンを設定してください。"

	msgGreetingSingle = "友だち追加ありがとうございます！\n" +
		"「お風呂を準備して」「電気をつけて」のように話しかけるとデバイスを操作できます。"

	msgRegisterPrompt = "SwitchBot のトークンを送信してください。（「キャンセル」で中止できます）"

	msgCancelDone    = "登録をキャンセルしました。"
	msgCancelNothing = "進行中の登録はありません。"

	msgTokenInvalid = "トークンの形式が正しくありません。61文字以上の英数字で入力してください。"

	msgEnumerateFailed = "デバイス一覧の取得に失敗しました。トークンを確認してもう一度送信するか、「キャンセル」で中止してください。"

	msgPersistFailed = "設定の保存に失敗しました。もう一度トークンを送信してください。"

	msgNeedRegistration = "デバイス操作には登録が必要です。「登録」と送って SwitchBot トークンを設定してください。"

	msgClarify = "すみません、よく分かりませんでした。「お風呂を準備して」「電気を消して」のように話しかけてください。"

	msgNoDeviceMatched = "操作できるデバイスが見つかりませんでした。デバイス名を確認してください。"

	msgCommandFailed = "エラーが発生しました。"
)

func msgRegisterDone(deviceCount int) string {
	return fmt.Sprintf("登録が完了しました！%d 台のデバイスを確認しました。", deviceCount)
}

func msgCommandDone(deviceName, action string) string {
	verb := action
	switch action {
	case "turnOn":
		verb = "オン"
	case "turnOff":
		verb = "オフ"
	}
	return fmt.Sprintf("「%s」を%sにしました。", deviceName, verb)
}
