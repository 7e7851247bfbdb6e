package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"subreminder/internal/model"
)

const timeLayout = "2006-01-02 15:04 MST"

func escape(s string) string {
	return html.EscapeString(s)
}

func formatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timeLayout)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// boatLabel renders a slot as "<n>号", or "-" when empty.
func boatLabel(boat string) string {
	boat = strings.TrimSpace(boat)
	if boat == "" {
		return "-"
	}
	return boat + "号"
}

func formatArrival(t model.Task, loc *time.Location, mention string) string {
	var b strings.Builder
	if mention = strings.TrimSpace(mention); mention != "" {
		b.WriteString(escape(mention))
		b.WriteByte('\n')
	}
	b.WriteString(fmt.Sprintf("🛥️ <b>%s %sが帰ってきました</b>\n", escape(orDash(t.FC)), escape(boatLabel(t.Boat))))
	if t.Note != "" {
		b.WriteString(escape(t.Note))
		b.WriteByte('\n')
	}
	b.WriteString(fmt.Sprintf("到着時刻: %s", formatTime(t.ArriveAt, loc)))
	return b.String()
}

func formatCreated(t model.Task, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("✅ <b>登録しました</b>\n")
	b.WriteString("到着時刻になったら通知します。\n")
	b.WriteString(fmt.Sprintf("ID: <code>%s</code>\n", escape(t.ID)))
	b.WriteString(fmt.Sprintf("FC: %s\n", escape(orDash(t.FC))))
	b.WriteString(fmt.Sprintf("艦番号: %s\n", escape(boatLabel(t.Boat))))
	b.WriteString(fmt.Sprintf("到着予定: %s", formatTime(t.ArriveAt, loc)))
	if t.Note != "" {
		b.WriteString(fmt.Sprintf("\nメモ: %s", escape(t.Note)))
	}
	return b.String()
}

func formatList(tasks []model.Task, loc *time.Location) string {
	var b strings.Builder
	for i, t := range tasks {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(fmt.Sprintf("🛳️ <b>%s %s</b> <code>%s</code>\n", escape(orDash(t.FC)), escape(boatLabel(t.Boat)), escape(t.ID)))
		b.WriteString(fmt.Sprintf("   到着予定: %s\n", formatTime(t.ArriveAt, loc)))
		if t.Note != "" {
			b.WriteString(fmt.Sprintf("   メモ: %s\n", escape(t.Note)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatEdited(t model.Task, loc *time.Location) string {
	return fmt.Sprintf("更新しました。到着: <b>%s</b> / FC:%s / 艦:%s / メモ:%s",
		formatTime(t.ArriveAt, loc), escape(orDash(t.FC)), escape(boatLabel(t.Boat)), escape(orDash(t.Note)))
}
