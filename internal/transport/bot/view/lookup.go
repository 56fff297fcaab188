package view

import (
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/samber/lo"

	"dkp_bot/internal/domain/service/lookup"
)

const (
	buttonsPerRow      = 2
	houseButtonsPerRow = 8
)

// Message содержит готовое к отправке сообщение диалога.
type Message struct {
	Text   string
	Markup telego.ReplyMarkup
}

// Render переводит ответ диалога в текст и клавиатуру.
func Render(reply lookup.Reply) Message {
	switch reply.Prompt {
	case lookup.PromptChooseProject:
		return Message{Text: ChooseProject, Markup: keyboard(reply.Options, buttonsPerRow)}
	case lookup.PromptChooseObjectType:
		return Message{Text: ChooseObjectType, Markup: keyboard(reply.Options, buttonsPerRow)}
	case lookup.PromptChooseHouse:
		return Message{Text: ChooseHouse, Markup: keyboard(reply.Options, houseButtonsPerRow)}
	case lookup.PromptObjectsFound:
		return Message{Text: ObjectsFound + strings.Join(reply.Options, ", "), Markup: tu.ReplyKeyboardRemove()}
	case lookup.PromptChooseObject:
		return Message{Text: ChooseObject}
	case lookup.PromptObjectPattern:
		return Message{Text: ObjectPattern}
	case lookup.PromptNoObjects:
		return Message{Text: NoObjects, Markup: tu.ReplyKeyboardRemove()}
	case lookup.PromptReport:
		return Message{Text: DealCard(reply.Deal)}
	case lookup.PromptNoData:
		return Message{Text: NoData, Markup: tu.ReplyKeyboardRemove()}
	case lookup.PromptReadError:
		return Message{Text: ReadError, Markup: tu.ReplyKeyboardRemove()}
	case lookup.PromptRestart:
		return Message{Text: Restart, Markup: tu.ReplyKeyboardRemove()}
	default:
		return Message{Text: UseButtons}
	}
}

func keyboard(options []string, perRow int) *telego.ReplyKeyboardMarkup {
	rows := lo.Map(lo.Chunk(options, perRow), func(chunk []string, _ int) []telego.KeyboardButton {
		return tu.KeyboardRow(lo.Map(chunk, func(o string, _ int) telego.KeyboardButton {
			return tu.KeyboardButton(o)
		})...)
	})

	return tu.Keyboard(rows...).WithResizeKeyboard()
}
