package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"routine-planner/internal/model"
	"routine-planner/internal/repository"
	"routine-planner/internal/schedule"
	"routine-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageNotes
	stageDay
	stageTime
	stageReminder
)

const (
	cbCompletePrefix = "complete:"
	cbReopenPrefix   = "reopen:"
	cbDeletePrefix   = "delete:"
	cbConfirmPrefix  = "confirm:"
	cbCancelPrefix   = "cancel:"
	cbDayPrefix      = "day:"
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api        *tgbotapi.BotAPI
	userRepo   *repository.UserRepository
	taskSvc    *service.TaskService
	routineSvc *service.RoutineService
	loc        *time.Location

	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, taskSvc *service.TaskService, routineSvc *service.RoutineService, loc *time.Location) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		taskSvc:       taskSvc,
		routineSvc:    routineSvc,
		loc:           loc,
		conversations: make(map[int64]*conversationState),
	}, nil
}

// Notify sends a plain reminder message. It implements service.Notifier.
func (b *Bot) Notify(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, escape(text))
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	text := strings.TrimSpace(msg.Text)
	if text == btnCancelDialog {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	}

	// Dialog answers share labels with the main menu, so the dialog wins.
	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	if alias, ok := menuAliases[text]; ok {
		return b.dispatch(ctx, msg, alias, "")
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Use /newtask to add something or /help for the list of commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	return b.dispatch(ctx, msg, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message, command, args string) error {
	switch command {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "today":
		return b.handleDay(ctx, msg, args, 0)
	case "tomorrow":
		return b.handleDay(ctx, msg, args, 1)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "routine":
		return b.handleRoutineTime(ctx, msg, args)
	case "complete":
		return b.handleCompletion(ctx, msg, args, true)
	case "reopen":
		return b.handleCompletion(ctx, msg, args, false)
	case "delete":
		return b.handleDelete(ctx, msg, args)
	case "meals":
		return b.handleMeals(ctx, msg, args)
	case "timezone":
		return b.handleTimezone(ctx, msg, args)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, created, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if created {
		log.Printf("[info] new user=%d telegram=%d", user.ID, user.TelegramID)
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	greeting := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your day in order: tasks, meals, focus blocks and sleep.</b>\n\n%s", escape(name), helpText)
	if err := b.sendText(msg.Chat.ID, greeting); err != nil {
		return err
	}
	return b.sendDay(ctx, msg.Chat.ID, user, b.today(user))
}

func (b *Bot) handleDay(ctx context.Context, msg *tgbotapi.Message, args string, offset int) error {
	user, _, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	day := b.today(user).AddDate(0, 0, offset)
	if args != "" {
		parsed, err := time.ParseInLocation("2006-01-02", args, user.Location(b.loc))
		if err != nil {
			return b.sendText(msg.Chat.ID, "Use the <code>2025-11-30</code> date format.")
		}
		day = parsed
	}
	return b.sendDay(ctx, msg.Chat.ID, user, day)
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	log.Printf("[info] start new task conversation user=%d", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}
	user, _, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title cannot be empty.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageNotes
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add some notes (or skip).", skipKeyboard())
	case stageNotes:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageDay
		return b.sendWithReplyMarkup(msg.Chat.ID, "📅 Which day? <code>2025-11-30</code>, today or tomorrow.", dayKeyboard())
	case stageDay:
		due, ok := parseDueInput(text, b.today(user))
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I cannot read that date. Try <code>2025-11-30</code>, today or tomorrow.", dayKeyboard())
		}
		state.input.DueAt = due
		state.stage = stageTime
		return b.sendWithReplyMarkup(msg.Chat.ID, "🕘 Time window like <code>9:00-10:30</code> (or skip).", skipKeyboard())
	case stageTime:
		if !isSkipInput(text) {
			r, ok := schedule.ParseRangeArg(text)
			if !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Use <code>H:MM-H:MM</code>, for example <code>9:00-10:30</code>.", skipKeyboard())
			}
			state.input.Range = &r
		}
		state.stage = stageReminder
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ Remind you at <code>H:MM</code>? (or skip)", skipKeyboard())
	case stageReminder:
		if !isSkipInput(text) {
			minute, ok := schedule.ParseClock(text)
			if !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Use <code>H:MM</code>, for example <code>8:45</code>.", skipKeyboard())
			}
			at := reminderTime(*state.input.DueAt, minute)
			state.input.ReminderAt = &at
		}
		err := b.finishTaskCreation(ctx, user, state.input, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Conversation reset. Start again with /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, user *model.User, input service.TaskInput, chatID int64) error {
	task, err := b.taskSvc.CreateTask(ctx, user, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the task: %s", escape(err.Error())))
	}

	log.Printf("[info] task created id=%d user=%d", task.ID, user.ID)

	if err := b.sendTextWithRemove(chatID, formatCreated(*task)); err != nil {
		return err
	}
	day := b.today(user)
	if task.DueAt != nil {
		day = *task.DueAt
	}
	return b.sendDay(ctx, chatID, user, day)
}

func (b *Bot) handleRoutineTime(ctx context.Context, msg *tgbotapi.Message, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /routine &lt;id&gt; 9:00-10:30")
	}
	taskID, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "The routine ID must be a number.")
	}
	r, ok := schedule.ParseRangeArg(fields[1])
	if !ok {
		return b.sendText(msg.Chat.ID, "Use <code>H:MM-H:MM</code>, for example <code>9:00-10:30</code>.")
	}

	user, _, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	changed, err := b.routineSvc.UpdateRoutineTime(ctx, user, uint(taskID), r)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return b.sendText(msg.Chat.ID, "Routine not found.")
	case errors.Is(err, service.ErrNotRoutine):
		return b.sendText(msg.Chat.ID, "That is a dated task. Edit routines only.")
	case err != nil:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	if err := b.sendText(msg.Chat.ID, formatCascade(changed)); err != nil {
		return err
	}
	return b.sendDay(ctx, msg.Chat.ID, user, b.today(user))
}

func (b *Bot) handleCompletion(ctx context.Context, msg *tgbotapi.Message, args string, done bool) error {
	if args == "" {
		return b.sendText(msg.Chat.ID, "Give me the task ID: /complete 12")
	}
	taskID, err := strconv.ParseUint(args, 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "The task ID must be a number.")
	}
	return b.setCompletionAndRefresh(ctx, msg.Chat.ID, msg.From, uint(taskID), done)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message, args string) error {
	taskID, err := strconv.ParseUint(args, 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /delete &lt;id&gt;")
	}
	user, _, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.GetTask(ctx, user, uint(taskID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(msg.Chat.ID, "Task not found.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	prompt := fmt.Sprintf("🗑 Delete «%s»?", escape(task.Title))
	return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmDeleteKeyboard(task.ID))
}

func (b *Bot) handleMeals(ctx context.Context, msg *tgbotapi.Message, args string) error {
	user, _, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if args == "" {
		prefs, err := b.routineSvc.MealPreferences(ctx, user)
		if err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load meal times: %s", escape(err.Error())))
		}
		return b.sendText(msg.Chat.ID, formatMeals(prefs)+"\nChange with /meals 8:00 13:00 19:00")
	}

	prefs, ok := parseMealsArgs(args)
	if !ok {
		return b.sendText(msg.Chat.ID, "Usage: /meals 8:00 13:00 19:00")
	}
	saved, err := b.routineSvc.SetMealPreferences(ctx, user, prefs)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not save meal times: %s", escape(err.Error())))
	}
	if err := b.sendText(msg.Chat.ID, "✅ "+formatMeals(saved)); err != nil {
		return err
	}
	return b.sendDay(ctx, msg.Chat.ID, user, b.today(user))
}

func (b *Bot) handleTimezone(ctx context.Context, msg *tgbotapi.Message, args string) error {
	user, _, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if args == "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Your timezone: %s. Change with /timezone Europe/Berlin", escape(user.Location(b.loc).String())))
	}
	if _, err := time.LoadLocation(args); err != nil {
		return b.sendText(msg.Chat.ID, "Unknown timezone. Use a name like Europe/Berlin.")
	}
	if err := b.userRepo.SetTimezone(ctx, user.ID, args); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	user.Timezone = args
	if err := b.routineSvc.SyncReminders(ctx, user); err != nil {
		log.Printf("[warn] sync reminders user=%d: %v", user.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Timezone set to %s.", escape(args)))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	log.Printf("[info] callback user=%d data=%s", cb.From.ID, data)

	switch {
	case strings.HasPrefix(data, cbCompletePrefix), strings.HasPrefix(data, cbReopenPrefix):
		done := strings.HasPrefix(data, cbCompletePrefix)
		prefix := cbReopenPrefix
		if done {
			prefix = cbCompletePrefix
		}
		taskID, err := parseTaskID(data, prefix)
		if err != nil {
			return err
		}
		return b.setCompletionAndRefresh(ctx, chatID, cb.From, taskID, done)
	case strings.HasPrefix(data, cbDeletePrefix):
		taskID, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return err
		}
		return b.sendWithReplyMarkup(chatID, "🗑 Delete this task?", confirmDeleteKeyboard(taskID))
	case strings.HasPrefix(data, cbConfirmPrefix):
		taskID, err := parseTaskID(data, cbConfirmPrefix)
		if err != nil {
			return err
		}
		return b.deleteTaskAndRefresh(ctx, chatID, cb.From, taskID)
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.sendText(chatID, "↩️ Kept.")
	case strings.HasPrefix(data, cbDayPrefix):
		user, _, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		day, err := time.ParseInLocation("2006-01-02", strings.TrimPrefix(data, cbDayPrefix), user.Location(b.loc))
		if err != nil {
			return err
		}
		return b.sendDay(ctx, chatID, user, day)
	}
	return nil
}

func (b *Bot) setCompletionAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint, done bool) error {
	user, _, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.SetCompletion(ctx, user, taskID, done)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(chatID, "Task not found.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	verb := "done"
	if !done {
		verb = "open again"
	}
	if err := b.sendText(chatID, fmt.Sprintf("✅ «%s» is %s.", escape(task.Title), verb)); err != nil {
		return err
	}
	day := b.today(user)
	if task.DueAt != nil {
		day = *task.DueAt
	}
	return b.sendDay(ctx, chatID, user, day)
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, _, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	if err := b.taskSvc.DeleteTask(ctx, user, taskID); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not delete: %s", escape(err.Error())))
	}
	log.Printf("[info] task deleted id=%d user=%d", taskID, user.ID)
	if err := b.sendText(chatID, "🗑 Deleted."); err != nil {
		return err
	}
	return b.sendDay(ctx, chatID, user, b.today(user))
}

// SyncAllReminders resynchronizes reminders for every known user.
func (b *Bot) SyncAllReminders(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.routineSvc.SyncReminders(ctx, &users[i]); err != nil {
			log.Printf("[warn] sync reminders user=%d: %v", users[i].ID, err)
		}
	}
	return nil
}

func (b *Bot) sendDay(ctx context.Context, chatID int64, user *model.User, day time.Time) error {
	sched, err := b.routineSvc.Refresh(ctx, user, day)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load the day: %s", escape(err.Error())))
	}
	msg := tgbotapi.NewMessage(chatID, renderSchedule(sched))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = scheduleKeyboard(sched)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) today(user *model.User) time.Time {
	return time.Now().In(user.Location(b.loc))
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, bool, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
