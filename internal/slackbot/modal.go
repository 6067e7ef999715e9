package slackbot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"docent_bot/internal/models"
	"docent_bot/internal/report"
	"docent_bot/internal/tasks"
)

const (
	inPlace    = "place"
	inWildlife = "wildlife"
	inOther    = "other"
	inDetails  = "details"
	inDate     = "when_date"
	inTime     = "when_time"

	// Static selects accept at most this many options.
	maxOptions = 100
)

type modalMeta struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func infoModal(title string, content ...slack.Block) slack.ModalViewRequest {
	return slack.ModalViewRequest{
		Type:   slack.VTModal,
		Title:  plain(title),
		Close:  plain("Close"),
		Blocks: slack.Blocks{BlockSet: content},
	}
}

func (b *Bot) loadLists(ctx context.Context) (reportLists, error) {
	var l reportLists
	for _, item := range []struct {
		key  string
		dest *[]models.Term
	}{
		{tasks.KeyPlaces, &l.places},
		{tasks.KeyWildlifeIssues, &l.wildlife},
		{tasks.KeyOtherIssues, &l.other},
	} {
		ok, err := b.lists.Get(ctx, item.key, item.dest)
		if err != nil {
			return reportLists{}, err
		}
		if !ok {
			return reportLists{}, fmt.Errorf("slackbot: %s not cached", item.key)
		}
	}
	return l, nil
}

func options(terms []models.Term) []*slack.OptionBlockObject {
	if len(terms) > maxOptions {
		terms = terms[:maxOptions]
	}
	out := make([]*slack.OptionBlockObject, 0, len(terms))
	for _, t := range terms {
		out = append(out, slack.NewOptionBlockObject(t.ID, plain(t.Name), nil))
	}
	return out
}

func reportModal(rtype, channel string, lists reportLists, loc *time.Location, now time.Time) (slack.ModalViewRequest, error) {
	meta, err := json.Marshal(modalMeta{Type: rtype, Channel: channel})
	if err != nil {
		return slack.ModalViewRequest{}, err
	}

	title := "Disturbance report"
	if rtype == models.TypeTrail {
		title = "Trail report"
	}

	local := now.In(loc)
	date := slack.NewDatePickerBlockElement(inDate)
	date.InitialDate = local.Format("2006-01-02")
	tm := slack.NewTimePickerBlockElement(inTime)
	tm.InitialTime = local.Format("15:04")

	place := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain("Choose a place"), inPlace, options(lists.places)...)
	details := slack.NewPlainTextInputBlockElement(plain("What did you see?"), inDetails)
	details.Multiline = true

	set := []slack.Block{
		slack.NewInputBlock(inPlace, plain("Where"), nil, place),
		slack.NewInputBlock(inDate, plain("Date"), nil, date),
		slack.NewInputBlock(inTime, plain("Time"), nil, tm),
	}
	if rtype == models.TypeDisturbance {
		wildlife := slack.NewOptionsMultiSelectBlockElement(slack.MultiOptTypeStatic, plain("Wildlife affected"), inWildlife, options(lists.wildlife)...)
		in := slack.NewInputBlock(inWildlife, plain("Wildlife disturbance"), nil, wildlife)
		in.Optional = true
		set = append(set, in)
	}
	other := slack.NewOptionsMultiSelectBlockElement(slack.MultiOptTypeStatic, plain("Other issues"), inOther, options(lists.other)...)
	otherIn := slack.NewInputBlock(inOther, plain("Other issues"), nil, other)
	otherIn.Optional = true
	detailsIn := slack.NewInputBlock(inDetails, plain("Details"), nil, details)
	detailsIn.Optional = true
	set = append(set, otherIn, detailsIn)

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      CallbackReport,
		Title:           plain(title),
		Submit:          plain("Submit"),
		Close:           plain("Cancel"),
		PrivateMetadata: string(meta),
		Blocks:          slack.Blocks{BlockSet: set},
	}, nil
}

func selected(o slack.OptionBlockObject) models.Term {
	t := models.Term{ID: o.Value}
	if o.Text != nil {
		t.Name = o.Text.Text
	}
	return t
}

// parseSubmission reads the report modal state. Missing or unparseable date
// and time leave When zero, which the report service treats as now.
func parseSubmission(state *slack.ViewState, rtype string, loc *time.Location) report.Submission {
	sub := report.Submission{Type: rtype}
	if state == nil {
		return sub
	}
	value := func(block string) slack.BlockAction {
		return state.Values[block][block]
	}

	sub.Place = selected(value(inPlace).SelectedOption)
	for _, o := range value(inWildlife).SelectedOptions {
		sub.WildlifeIssues = append(sub.WildlifeIssues, selected(o))
	}
	for _, o := range value(inOther).SelectedOptions {
		sub.OtherIssues = append(sub.OtherIssues, selected(o))
	}
	sub.Details = value(inDetails).Value

	date, tm := value(inDate).SelectedDate, value(inTime).SelectedTime
	if date != "" && tm != "" {
		if when, err := time.ParseInLocation("2006-01-02 15:04", date+" "+tm, loc); err == nil {
			sub.When = when
		}
	}
	return sub
}
