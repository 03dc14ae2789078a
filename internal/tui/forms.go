package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tenken/internal/constants"
	"github.com/julianstephens/tenken/internal/models"
)

type formKind int

const (
	formAdd formKind = iota
	formEdit
	formLink
)

type TaskFormModel struct {
	Item    string
	Place   string
	Day     string
	Week    string
	Month   string
	Visible bool
}

func taskFormFromDraft(d models.TaskDraft) *TaskFormModel {
	return &TaskFormModel{
		Item:    d.Item,
		Place:   d.Place,
		Day:     d.Slot.Get(models.SlotDay),
		Week:    d.Slot.Get(models.SlotWeek),
		Month:   d.Slot.Get(models.SlotMonth),
		Visible: d.Visible,
	}
}

func taskFormFromTask(t models.MaintenanceTask) *TaskFormModel {
	return &TaskFormModel{
		Item:    t.Item,
		Place:   t.Place,
		Day:     t.Slot.Get(models.SlotDay),
		Week:    t.Slot.Get(models.SlotWeek),
		Month:   t.Slot.Get(models.SlotMonth),
		Visible: t.Visible,
	}
}

// Draft converts the form back into a catalog draft.
func (fm *TaskFormModel) Draft() models.TaskDraft {
	return models.TaskDraft{
		Item:    fm.Item,
		Place:   fm.Place,
		Slot:    models.Slot{Day: fm.Day, Week: fm.Week, Month: fm.Month},
		Visible: fm.Visible,
	}
}

// Value returns the form value of a catalog field in its Update encoding.
func (fm *TaskFormModel) Value(field string) string {
	switch field {
	case models.FieldItem:
		return fm.Item
	case models.FieldPlace:
		return fm.Place
	case string(models.SlotDay):
		return fm.Day
	case string(models.SlotWeek):
		return fm.Week
	case string(models.SlotMonth):
		return fm.Month
	case models.FieldVisible:
		return fmt.Sprintf("%t", fm.Visible)
	}
	return ""
}

func (fm *TaskFormModel) slotValue(f models.SlotField) *string {
	switch f {
	case models.SlotWeek:
		return &fm.Week
	case models.SlotMonth:
		return &fm.Month
	default:
		return &fm.Day
	}
}

type LinkFormModel struct {
	URL   string
	Label string
}

type ConfirmationFormModel struct {
	Confirmed bool
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		return nil
	}
}

var slotTitles = map[models.SlotField]string{
	models.SlotDay:   "Day",
	models.SlotWeek:  "Week",
	models.SlotMonth: "Month",
}

// NewTaskForm builds the add/edit form. Only the slot dimensions of the tier
// are offered.
func NewTaskForm(tier models.Tier, title string, fm *TaskFormModel) *huh.Form {
	fields := []huh.Field{
		huh.NewNote().Title(title),
		huh.NewInput().
			Title("Item").
			Value(&fm.Item).
			Validate(required("item")),
		huh.NewInput().
			Title("Place").
			Value(&fm.Place).
			Validate(required("place")),
	}
	for _, f := range tier.SlotFields() {
		fields = append(fields, huh.NewSelect[string]().
			Title(slotTitles[f]).
			Options(huh.NewOptions(f.Options()...)...).
			Value(fm.slotValue(f)))
	}
	fields = append(fields, huh.NewConfirm().
		Title("Show on the run sheet?").
		Value(&fm.Visible))

	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeDracula())
}

func NewLinkForm(fm *LinkFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Reference URL").
				Value(&fm.URL).
				Validate(required("url")),
			huh.NewInput().
				Title("Label").
				Description("Defaults to " + constants.DefaultLinkLabel).
				Value(&fm.Label),
		),
	).WithTheme(huh.ThemeDracula())
}

func NewConfirmationForm(title string, fm *ConfirmationFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&fm.Confirmed),
		),
	).WithTheme(huh.ThemeDracula())
}
