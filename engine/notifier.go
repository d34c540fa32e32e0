package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbruni/weekendfly/config"
	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/pkg/logger"
	"github.com/tbruni/weekendfly/pkg/notify"
)

const (
	alertDateLayout  = "Mon 02 Jan"
	digestDateLayout = "02/01"

	summaryTopDestinations = 3
	digestMaxLines         = 15
)

// Notifier turns fresh deals into ntfy pushes. Push failures are logged and
// swallowed; only store failures propagate, so a flaky push server never
// rolls back an orchestration.
type Notifier struct {
	client       *notify.Client
	defaultTopic string
}

// NewNotifier creates a notifier posting through the given client.
func NewNotifier(client *notify.Client, cfg config.NTFYConfig) *Notifier {
	return &Notifier{
		client:       client,
		defaultTopic: cfg.DefaultTopic,
	}
}

// Alert gates the profile's unnotified deals that fit the budget and returns
// the pushes to send. Per destination only the cheapest deal is surfaced:
// belled destinations get an individual push each, the rest share one summary
// of the top cheapest. Every surfaced deal is marked notified, pushed or not,
// so a push outage does not replay old deals forever. Alert only touches the
// store; the caller posts the returned messages with Send once its
// transaction has committed.
func (n *Notifier) Alert(ctx context.Context, store *db.Store, profile *db.SearchProfile) ([]notify.Message, error) {
	deals, err := store.UnnotifiedDeals(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	// The matcher keeps deals up to budgetSlack over budget so their rows
	// survive price wobbles, but only in-budget deals are worth a push. The
	// over-budget ones stay unnotified and alert when the price drops in.
	var inBudget []db.DealView
	for _, deal := range deals {
		if deal.TotalPricePP <= profile.MaxPricePP {
			inBudget = append(inBudget, deal)
		}
	}
	if len(inBudget) == 0 {
		return nil, nil
	}

	topic := n.topicFor(profile)
	best := cheapestPerDestination(inBudget)

	var msgs []notify.Message
	var rest []db.DealView
	for _, deal := range best {
		if profile.Belled(deal.Outbound.Destination) {
			msgs = append(msgs, dealMessage(topic, deal, profile.Party))
		} else {
			rest = append(rest, deal)
		}
	}
	if len(rest) > 0 {
		msgs = append(msgs, summaryMessage(topic, rest))
	}

	ids := make([]int64, len(inBudget))
	for i, deal := range inBudget {
		ids[i] = deal.ID
	}
	if err := store.MarkDealsNotified(ctx, ids); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Send posts prepared alert messages, logging and swallowing failures.
func (n *Notifier) Send(ctx context.Context, msgs []notify.Message) {
	for _, msg := range msgs {
		if err := n.client.Publish(ctx, msg); err != nil {
			logger.Error(err, "failed to push deal alert", "title", msg.Title)
		}
	}
}

// Digest pushes one daily summary of the profile's current in-budget deals,
// cheapest destination first. Returns the number of destinations included.
func (n *Notifier) Digest(ctx context.Context, store *db.Store, profile *db.SearchProfile) (int, error) {
	deals, err := store.Deals(ctx, db.DealFilter{ProfileID: profile.ID})
	if err != nil {
		return 0, err
	}
	var inBudget []db.DealView
	for _, deal := range deals {
		if deal.TotalPricePP <= profile.MaxPricePP {
			inBudget = append(inBudget, deal)
		}
	}
	best := cheapestPerDestination(inBudget)
	if len(best) == 0 {
		return 0, nil
	}

	var lines []string
	for i, deal := range best {
		if i == digestMaxLines {
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %.0f%s (%s-%s)",
			destinationName(deal.Outbound),
			deal.TotalPricePP, deal.Outbound.Currency,
			deal.Outbound.Departure.Format(digestDateLayout),
			deal.Inbound.Departure.Format(digestDateLayout),
		))
	}

	msg := notify.Message{
		Topic: n.topicFor(profile),
		Title: fmt.Sprintf("Daily flight digest (%d destinations)", len(best)),
		Body:  strings.Join(lines, "\n"),
		Tags:  []string{"globe_with_meridians"},
	}
	if err := n.client.Publish(ctx, msg); err != nil {
		logger.Error(err, "failed to push daily digest", "profile_id", profile.ID)
	}
	return len(best), nil
}

func (n *Notifier) topicFor(profile *db.SearchProfile) string {
	if profile.NtfyTopic != "" {
		return profile.NtfyTopic
	}
	return n.defaultTopic
}

// cheapestPerDestination keeps the first deal per outbound destination.
// Inputs arrive ordered by price, so first means cheapest, and the result
// stays in ascending price order.
func cheapestPerDestination(deals []db.DealView) []db.DealView {
	seen := make(map[string]bool, len(deals))
	var best []db.DealView
	for _, deal := range deals {
		dest := deal.Outbound.Destination
		if seen[dest] {
			continue
		}
		seen[dest] = true
		best = append(best, deal)
	}
	return best
}

func dealMessage(topic string, deal db.DealView, party int) notify.Message {
	links := BookingLinks(deal, party)

	body := fmt.Sprintf("%s -> %s %s / %s",
		deal.Outbound.Origin, deal.Outbound.Destination,
		deal.Outbound.Departure.Format(alertDateLayout),
		deal.Inbound.Departure.Format(alertDateLayout),
	)
	// Metro pairs need two bookings; the extra link goes in the body because
	// Click only carries one URL.
	if len(links) > 1 {
		for _, link := range links {
			body += fmt.Sprintf("\n%s: %s", link.Label, link.URL)
		}
	}

	return notify.Message{
		Topic: topic,
		Title: fmt.Sprintf("%s %.0f%s pp", destinationName(deal.Outbound), deal.TotalPricePP, deal.Outbound.Currency),
		Body:  body,
		Click: links[0].URL,
		Tags:  []string{"airplane"},
	}
}

func summaryMessage(topic string, deals []db.DealView) notify.Message {
	var lines []string
	for i, deal := range deals {
		if i == summaryTopDestinations {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %.0f%s pp (%s / %s)",
			destinationName(deal.Outbound),
			deal.TotalPricePP, deal.Outbound.Currency,
			deal.Outbound.Departure.Format(alertDateLayout),
			deal.Inbound.Departure.Format(alertDateLayout),
		))
	}
	return notify.Message{
		Topic: topic,
		Title: fmt.Sprintf("%d new deal destinations", len(deals)),
		Body:  strings.Join(lines, "\n"),
		Tags:  []string{"airplane"},
	}
}

// destinationName is the human half of "Barcelona, Spain", falling back to
// the IATA code.
func destinationName(f db.Flight) string {
	if f.DestinationFull == "" {
		return f.Destination
	}
	name, _, _ := strings.Cut(f.DestinationFull, ",")
	return strings.TrimSpace(name)
}
