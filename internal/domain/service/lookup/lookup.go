// Package lookup ведёт справочный диалог по непереданным объектам:
// проект → тип объекта → дом → номер → карточка сделки.
package lookup

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/value"
	"dkp_bot/pkg/errcodes"
	"dkp_bot/pkg/logx"
)

type Step int

const (
	StepProject Step = iota + 1
	StepObjectType
	StepHouse
	StepObject
)

// Session хранит состояние диалога одного чата.
type Session struct {
	Step       Step
	Project    string
	ObjectType value.ObjectType
	House      int
	Objects    []int
}

type Prompt int

const (
	PromptChooseProject Prompt = iota + 1
	PromptChooseObjectType
	PromptChooseHouse
	PromptObjectsFound
	PromptChooseObject
	PromptUseButtons
	PromptObjectPattern
	PromptNoObjects
	PromptReport
	PromptNoData
	PromptReadError
	PromptRestart
)

// Reply описывает одно сообщение пользователю. Options содержит кнопки или номера,
// Deal заполнен только для PromptReport.
type Reply struct {
	Prompt  Prompt
	Options []string
	Deal    entity.Deal
}

// Result описывает ответ на сообщение. Done означает, что сессию нужно удалить.
type Result struct {
	Session Session
	Replies []Reply
	Done    bool
}

type DealReader interface {
	ListHouses(ctx context.Context, project string, objectType value.ObjectType) ([]int, error)
	ListObjects(ctx context.Context, project string, objectType value.ObjectType, house int) ([]int, error)
	FindByObject(ctx context.Context, project string, objectType value.ObjectType, house, object int) (entity.Deal, error)
}

type Dialog struct {
	deals    DealReader
	projects []string
}

func NewDialog(deals DealReader, projects []string) *Dialog {
	return &Dialog{
		deals:    deals,
		projects: projects,
	}
}

func (d *Dialog) Projects() []string {
	return slices.Clone(d.projects)
}

// Start начинает диалог заново.
func (d *Dialog) Start() Result {
	return Result{
		Session: Session{Step: StepProject},
		Replies: []Reply{{Prompt: PromptChooseProject, Options: d.Projects()}},
	}
}

// Handle обрабатывает очередное сообщение пользователя.
func (d *Dialog) Handle(ctx context.Context, s Session, text string) Result {
	text = strings.TrimSpace(text)

	switch s.Step {
	case StepProject:
		return d.onProject(s, text)
	case StepObjectType:
		return d.onObjectType(ctx, s, text)
	case StepHouse:
		return d.onHouse(ctx, s, text)
	case StepObject:
		return d.onObject(ctx, s, text)
	default:
		return d.Start()
	}
}

func (d *Dialog) onProject(s Session, text string) Result {
	if !slices.Contains(d.projects, text) {
		return stay(s, PromptUseButtons)
	}

	return Result{
		Session: Session{Step: StepObjectType, Project: text},
		Replies: []Reply{{Prompt: PromptChooseObjectType, Options: objectTypeLabels()}},
	}
}

func (d *Dialog) onObjectType(ctx context.Context, s Session, text string) Result {
	objectType, ok := value.ObjectTypeFromLabel(text)
	if !ok {
		return stay(s, PromptUseButtons)
	}

	houses, err := d.deals.ListHouses(ctx, s.Project, objectType)
	if err != nil {
		return d.readError(ctx, s, err)
	}

	if len(houses) == 0 {
		return done(Reply{Prompt: PromptNoObjects})
	}

	return Result{
		Session: Session{Step: StepHouse, Project: s.Project, ObjectType: objectType},
		Replies: []Reply{{Prompt: PromptChooseHouse, Options: lo.Map(houses, itoa)}},
	}
}

func (d *Dialog) onHouse(ctx context.Context, s Session, text string) Result {
	house, err := strconv.Atoi(text)
	if err != nil {
		return stay(s, PromptUseButtons)
	}

	houses, err := d.deals.ListHouses(ctx, s.Project, s.ObjectType)
	if err != nil {
		return d.readError(ctx, s, err)
	}

	if !slices.Contains(houses, house) {
		return stay(s, PromptUseButtons)
	}

	objects, err := d.deals.ListObjects(ctx, s.Project, s.ObjectType, house)
	if err != nil {
		return d.readError(ctx, s, err)
	}

	if len(objects) == 0 {
		return done(Reply{Prompt: PromptNoObjects})
	}

	found := Reply{
		Prompt: PromptObjectsFound,
		Options: lo.Map(objects, func(n int, _ int) string {
			return "/" + strconv.Itoa(n)
		}),
	}

	s.Step = StepObject
	s.House = house
	s.Objects = objects

	if len(objects) > 1 {
		return Result{
			Session: s,
			Replies: []Reply{found, {Prompt: PromptChooseObject}},
		}
	}

	res := d.report(ctx, s, objects[0])
	res.Replies = append([]Reply{found}, res.Replies...)

	return res
}

func (d *Dialog) onObject(ctx context.Context, s Session, text string) Result {
	object, ok := parseObjectCommand(text)
	if !ok || !slices.Contains(s.Objects, object) {
		return stay(s, PromptObjectPattern)
	}

	return d.report(ctx, s, object)
}

// report выдаёт карточку объекта. При единственном объекте в доме диалог
// завершается, иначе можно запросить следующий номер.
func (d *Dialog) report(ctx context.Context, s Session, object int) Result {
	deal, err := d.deals.FindByObject(ctx, s.Project, s.ObjectType, s.House, object)
	if err != nil {
		if domain.HasCode(err, errcodes.DealNotFound) {
			return done(Reply{Prompt: PromptNoData})
		}
		return d.readError(ctx, s, err)
	}

	replies := []Reply{{Prompt: PromptReport, Deal: deal}}

	if len(s.Objects) > 1 {
		return Result{Session: s, Replies: replies}
	}

	return done(append(replies, Reply{Prompt: PromptRestart})...)
}

func (d *Dialog) readError(ctx context.Context, s Session, err error) Result {
	logger(ctx).Error(
		"lookup read failed",
		slog.String(logx.FieldProject, s.Project),
		slog.String("object-type", s.ObjectType.String()),
		logx.Error(err),
	)
	return done(Reply{Prompt: PromptReadError})
}

// parseObjectCommand разбирает "/12" и "/12@bot_name".
func parseObjectCommand(text string) (int, bool) {
	payload := strings.TrimPrefix(text, "/")
	payload, _, _ = strings.Cut(payload, "@")

	n, err := strconv.Atoi(payload)
	if err != nil {
		return 0, false
	}

	return n, true
}

func objectTypeLabels() []string {
	return lo.Map(value.ObjectTypes(), func(t value.ObjectType, _ int) string {
		return t.Label()
	})
}

func itoa(n int, _ int) string {
	return strconv.Itoa(n)
}

func stay(s Session, prompt Prompt) Result {
	return Result{Session: s, Replies: []Reply{{Prompt: prompt}}}
}

func done(replies ...Reply) Result {
	return Result{Replies: replies, Done: true}
}
