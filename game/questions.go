package game

import (
	"strings"
)

// Question は語彙クイズの１問です。
type Question struct {
	Prompt string // 出題する単語（スペイン語）
	Answer string // 正解（英語）
}

// 固定の順序付き問題バンク。全クライアントが同じ並びを使いますが、
// 現在位置は各クライアントがローカルに管理します
var QuestionBank = []Question{
	{Prompt: "perro", Answer: "dog"},
	{Prompt: "gato", Answer: "cat"},
	{Prompt: "casa", Answer: "house"},
	{Prompt: "libro", Answer: "book"},
	{Prompt: "agua", Answer: "water"},
	{Prompt: "comida", Answer: "food"},
	{Prompt: "escuela", Answer: "school"},
	{Prompt: "ciudad", Answer: "city"},
	{Prompt: "tiempo", Answer: "time"},
	{Prompt: "amigo", Answer: "friend"},
	{Prompt: "trabajo", Answer: "work"},
	{Prompt: "familia", Answer: "family"},
	{Prompt: "noche", Answer: "night"},
	{Prompt: "mañana", Answer: "morning"},
	{Prompt: "ventana", Answer: "window"},
	{Prompt: "puerta", Answer: "door"},
	{Prompt: "mesa", Answer: "table"},
	{Prompt: "silla", Answer: "chair"},
	{Prompt: "camino", Answer: "road"},
	{Prompt: "mundo", Answer: "world"},
}

// QuestionAt は問題バンクを循環参照します。
func QuestionAt(index int) Question {
	return QuestionBank[index%len(QuestionBank)]
}

// CheckAnswer は回答をローカルの正解キーと照合します。
// 大文字小文字と前後の空白は無視
func CheckAnswer(index int, answer string) bool {
	expected := QuestionAt(index).Answer
	return strings.EqualFold(strings.TrimSpace(answer), expected)
}
