package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"subreminder/internal/repository"
	"subreminder/internal/service"
	"subreminder/internal/timeparse"
)

const listChunk = 10

type scope struct {
	guildID   int64
	channelID int64
	userID    int64
}

var (
	addKeys    = []string{"duration", "arrive", "fc", "boat", "note"}
	idKeys     = []string{"id"}
	deferKeys  = []string{"id", "delta"}
	editKeys   = []string{"id", "duration", "arrive", "fc", "boat", "note"}
	msgUnknown = "コマンドが分かりません。/help を参照してください。"
)

// runCommand executes one command and returns the reply messages.
func (b *Bot) runCommand(ctx context.Context, command, rawArgs string, sc scope) []string {
	switch strings.ToLower(command) {
	case "start", "help":
		return []string{helpText}
	case "add":
		return b.handleAdd(ctx, parseArgs(rawArgs, addKeys), sc)
	case "list":
		return b.handleList(sc)
	case "cancel":
		return b.handleCancel(ctx, parseArgs(rawArgs, idKeys))
	case "defer":
		return b.handleDefer(ctx, parseArgs(rawArgs, deferKeys))
	case "edit":
		return b.handleEdit(ctx, parseArgs(rawArgs, editKeys))
	default:
		return []string{msgUnknown}
	}
}

func (b *Bot) handleAdd(ctx context.Context, args map[string]string, sc scope) []string {
	due := service.DueSpec{Duration: args["duration"], Arrive: args["arrive"]}
	if due.Duration == "" && due.Arrive == "" {
		due.Duration = args[""]
	}
	task, err := b.tasks.Create(ctx, service.CreateInput{
		GuildID:   sc.guildID,
		ChannelID: sc.channelID,
		UserID:    sc.userID,
		Group:     args["fc"],
		Slot:      args["boat"],
		Note:      args["note"],
		Due:       due,
	})
	if err != nil {
		return []string{errorText(err)}
	}
	return []string{formatCreated(task, b.tasks.Location())}
}

func (b *Bot) handleList(sc scope) []string {
	tasks := b.tasks.List(sc.guildID)
	if len(tasks) == 0 {
		return []string{"予約はありません。"}
	}
	var out []string
	for i := 0; i < len(tasks); i += listChunk {
		end := min(i+listChunk, len(tasks))
		out = append(out, formatList(tasks[i:end], b.tasks.Location()))
	}
	out = append(out, fmt.Sprintf("%d件の予約を表示しました。", len(tasks)))
	return out
}

func (b *Bot) handleCancel(ctx context.Context, args map[string]string) []string {
	id := taskID(args)
	if id == "" {
		return []string{"ID を指定してください（例: /cancel id:1a2b3c4d）。"}
	}
	if _, err := b.tasks.Cancel(ctx, id); err != nil {
		return []string{errorText(err)}
	}
	return []string{"キャンセルしました。"}
}

func (b *Bot) handleDefer(ctx context.Context, args map[string]string) []string {
	id := taskID(args)
	if id == "" {
		return []string{"ID を指定してください（例: /defer id:1a2b3c4d delta:30min）。"}
	}
	delta := args["delta"]
	if delta == "" {
		if fields := strings.Fields(args[""]); len(fields) > 1 {
			delta = strings.Join(fields[1:], " ")
		}
	}
	task, err := b.tasks.Defer(ctx, id, delta)
	if err != nil {
		return []string{errorText(err)}
	}
	return []string{fmt.Sprintf("遅延しました。新しい到着は <b>%s</b> です。", formatTime(task.ArriveAt, b.tasks.Location()))}
}

func (b *Bot) handleEdit(ctx context.Context, args map[string]string) []string {
	id := taskID(args)
	if id == "" {
		return []string{"ID を指定してください（例: /edit id:1a2b3c4d note:メモ）。"}
	}
	in := service.EditInput{Due: service.DueSpec{Duration: args["duration"], Arrive: args["arrive"]}}
	if v, ok := args["fc"]; ok {
		in.Group = &v
	}
	if v, ok := args["boat"]; ok {
		in.Slot = &v
	}
	if v, ok := args["note"]; ok {
		in.Note = &v
	}
	task, err := b.tasks.Edit(ctx, id, in)
	if err != nil {
		return []string{errorText(err)}
	}
	return []string{formatEdited(task, b.tasks.Location())}
}

// taskID takes the id key, or the first positional word.
func taskID(args map[string]string) string {
	if id := strings.TrimSpace(args["id"]); id != "" {
		return id
	}
	if fields := strings.Fields(args[""]); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// parseArgs splits "key:value" arguments. A value runs until the next known
// key, so notes may contain spaces. Text before the first key is stored
// under "".
func parseArgs(raw string, keys []string) map[string]string {
	known := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		known[k] = struct{}{}
	}
	out := map[string]string{}
	current := ""
	var parts []string
	flush := func() {
		v := strings.TrimSpace(strings.Join(parts, " "))
		if current != "" || v != "" {
			out[current] = v
		}
		parts = parts[:0]
	}
	for _, field := range strings.Fields(raw) {
		if k, v, ok := strings.Cut(field, ":"); ok {
			if _, isKey := known[strings.ToLower(k)]; isKey {
				flush()
				current = strings.ToLower(k)
				if v != "" {
					parts = append(parts, v)
				}
				continue
			}
		}
		parts = append(parts, field)
	}
	flush()
	return out
}

func errorText(err error) string {
	var (
		perr *timeparse.ParseError
		verr *service.ValidationError
	)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "IDが見つかりません。/list で確認してください。"
	case errors.As(err, &perr):
		return fmt.Sprintf("時間指定が不正です（例: 18h10min / 90min / 30分、到着日時は YYYY-MM-DD HH:MM）: %s", escape(perr.Rule))
	case errors.As(err, &verr) && verr.Field == "due":
		return "duration または arrive のどちらかを指定してください。"
	case errors.As(err, &verr):
		return fmt.Sprintf("入力が不正です: %s", escape(verr.Error()))
	case errors.Is(err, repository.ErrPersistence):
		return "保存に失敗しました。もう一度お試しください。"
	default:
		return "エラーが発生しました。もう一度お試しください。"
	}
}

const helpText = "⚓ <b>潜水艦リマインダー（到着のみ通知）</b>\n" +
	"• <code>/add duration:18h10min fc:a boat:1 note:メモ</code>\n" +
	"  - <code>fc</code>: a→Alexander, p→Pandemonium（前方一致OK）\n" +
	"  - <code>duration</code>: 18h10min / 90min / 30分\n" +
	"  - <code>arrive</code>: YYYY-MM-DD HH:MM\n" +
	"• <code>/list</code>\n" +
	"• <code>/cancel id:&lt;ID&gt;</code>\n" +
	"• <code>/defer id:&lt;ID&gt; delta:30min</code>\n" +
	"• <code>/edit id:&lt;ID&gt; [duration|arrive|fc|boat|note]</code>"

var _ service.Notifier = (*Bot)(nil)
