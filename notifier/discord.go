package notifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/service"
)

// Config holds notifier configuration
type Config struct {
	Token     string
	ChannelID string
}

// DiscordNotifier posts wagering announcements to the club's Discord channel.
// It is a pure event consumer: nothing in the engine depends on it, and a
// missing token simply disables it.
type DiscordNotifier struct {
	config     Config
	session    *discordgo.Session
	uowFactory service.UnitOfWorkFactory
}

// New creates a notifier and connects it to Discord
func New(config Config, uowFactory service.UnitOfWorkFactory, eventBus *events.Bus) (*DiscordNotifier, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages

	n := &DiscordNotifier{
		config:     config,
		session:    dg,
		uowFactory: uowFactory,
	}

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	eventBus.Subscribe(events.EventTypeNightStarted, n.handleNightStarted)
	eventBus.Subscribe(events.EventTypeOddsGenerated, n.handleOddsGenerated)
	eventBus.Subscribe(events.EventTypeSessionResolved, n.handleSessionResolved)

	log.WithField("channelID", config.ChannelID).Info("Discord notifier connected")

	return n, nil
}

// Close shuts down the Discord session
func (n *DiscordNotifier) Close() error {
	return n.session.Close()
}

func (n *DiscordNotifier) handleNightStarted(ctx context.Context, event events.Event) {
	e, ok := event.(events.NightStartedEvent)
	if !ok {
		return
	}

	content := fmt.Sprintf("Game night is underway with %d players checked in. Attendees are locked out of betting; everyone else, place your bets!", e.Attendees)
	if _, err := n.session.ChannelMessageSend(n.config.ChannelID, content); err != nil {
		log.WithError(err).Error("Failed to announce night start")
	}
}

func (n *DiscordNotifier) handleOddsGenerated(ctx context.Context, event events.Event) {
	e, ok := event.(events.OddsGeneratedEvent)
	if !ok {
		return
	}

	names, err := n.memberNames(ctx, keysOf(e.Odds))
	if err != nil {
		log.WithError(err).Error("Failed to resolve member names for odds announcement")
		return
	}

	candidateIDs := keysOf(e.Odds)
	sort.Slice(candidateIDs, func(i, j int) bool { return e.Odds[candidateIDs[i]] < e.Odds[candidateIDs[j]] })

	var lines []string
	for _, id := range candidateIDs {
		lines = append(lines, fmt.Sprintf("**%s** @ %.2fx", names[id], float64(e.Odds[id])/100))
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Odds are up for %s", e.BoardGame),
		Description: strings.Join(lines, "\n"),
		Color:       0x5865F2,
	}
	if _, err := n.session.ChannelMessageSendEmbed(n.config.ChannelID, embed); err != nil {
		log.WithError(err).Error("Failed to announce odds")
	}
}

func (n *DiscordNotifier) handleSessionResolved(ctx context.Context, event events.Event) {
	e, ok := event.(events.SessionResolvedEvent)
	if !ok {
		return
	}

	memberIDs := keysOf(e.RatingDeltas)
	if e.WinnerMemberID != nil {
		memberIDs = append(memberIDs, *e.WinnerMemberID)
	}
	names, err := n.memberNames(ctx, memberIDs)
	if err != nil {
		log.WithError(err).Error("Failed to resolve member names for resolution announcement")
		return
	}

	var title string
	switch {
	case e.WinnerMemberID != nil:
		title = fmt.Sprintf("%s takes %s!", names[*e.WinnerMemberID], e.BoardGame)
	case e.WinnerTeamName != nil:
		title = fmt.Sprintf("Team %s takes %s!", *e.WinnerTeamName, e.BoardGame)
	default:
		title = fmt.Sprintf("%s ends in a draw", e.BoardGame)
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%d winning bet(s), %d losing bet(s), %d coins paid out.", e.WinningBets, e.LosingBets, e.TotalPaidOut))

	deltaIDs := keysOf(e.RatingDeltas)
	sort.Slice(deltaIDs, func(i, j int) bool { return deltaIDs[i] < deltaIDs[j] })
	for _, id := range deltaIDs {
		lines = append(lines, fmt.Sprintf("%s: %+d rating", names[id], e.RatingDeltas[id]))
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: strings.Join(lines, "\n"),
		Color:       0x57F287,
	}
	if _, err := n.session.ChannelMessageSendEmbed(n.config.ChannelID, embed); err != nil {
		log.WithError(err).Error("Failed to announce resolution")
	}
}

func (n *DiscordNotifier) memberNames(ctx context.Context, memberIDs []int64) (map[int64]string, error) {
	uow := n.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	members, err := uow.MemberRepository().GetByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(members))
	for id, member := range members {
		names[id] = member.Name
	}
	return names, nil
}

func keysOf[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
