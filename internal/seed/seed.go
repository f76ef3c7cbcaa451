// Package seed holds the demo support concerns shown by the console when no real intake exists.
package seed

import (
	"context"
	"fmt"
	"log"

	"github.com/greecode/admin-portal/internal/model"
	"github.com/greecode/admin-portal/internal/service"
)

var demoIntakes = []service.Intake{
	{UserID: "usr_1024", Name: "Aarav Mehta", Email: "aarav.mehta@example.com", Subject: "Interview room did not load", Message: "The coding pad stayed blank for my 3pm interview."},
	{UserID: "usr_2048", Name: "Sofia Alvarez", Email: "sofia.alvarez@example.com", Subject: "Coupon not applied at checkout", Message: "SPRING25 says invalid but the email said it is valid until Friday."},
	{UserID: "usr_4096", Name: "Kenji Watanabe", Email: "kenji.w@example.com", Subject: "Passkey lost", Message: "I switched phones and can no longer sign in with my passkey."},
	{UserID: "usr_8192", Name: "Grace Okafor", Email: "grace.okafor@example.com", Subject: "Double charge on subscription", Message: "My card was billed twice this month."},
}

// Load creates the demo concerns and walks some of them through the workflow so every status
// has at least one entry. A store that already holds concerns is left alone.
func Load(ctx context.Context, svc service.ConcernServicer) ([]*model.Concern, error) {
	counts, err := svc.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed: count concerns: %w", err)
	}
	var existing int64
	for _, n := range counts {
		existing += n
	}
	if existing > 0 {
		log.Printf("seed: store already holds %d concerns, skipping", existing)
		return nil, nil
	}

	out := make([]*model.Concern, 0, len(demoIntakes))
	for _, in := range demoIntakes {
		c, err := svc.Create(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", in.Subject, err)
		}
		out = append(out, c)
	}

	active := out[2]
	if _, err := svc.Accept(ctx, active.ID); err != nil {
		return nil, fmt.Errorf("seed accept: %w", err)
	}
	if _, err := svc.SendMessage(ctx, active.ID, "Hi Kenji, we have sent a recovery link to your email.", model.SenderAdmin); err != nil {
		return nil, fmt.Errorf("seed message: %w", err)
	}

	closed := out[3]
	if _, err := svc.Accept(ctx, closed.ID); err != nil {
		return nil, fmt.Errorf("seed accept: %w", err)
	}
	if _, err := svc.SendMessage(ctx, closed.ID, "The duplicate charge has been refunded.", model.SenderAdmin); err != nil {
		return nil, fmt.Errorf("seed message: %w", err)
	}
	if _, err := svc.Close(ctx, closed.ID, model.CloseReasonConcernSolved, "Refunded duplicate charge."); err != nil {
		return nil, fmt.Errorf("seed close: %w", err)
	}

	for i, c := range out {
		fresh, err := svc.Get(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out[i] = fresh
	}
	return out, nil
}
