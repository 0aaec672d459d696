package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	accountdomain "community_chat_service/internal/account/domain"
	"community_chat_service/internal/chat/domain"
	testtool "community_chat_service/pkg/test_tool"

	"github.com/cucumber/godog"
)

// conversationWorld 每個 scenario 重新建立
type conversationWorld struct {
	t        *testing.T
	f        *fixture
	accounts *testtool.MockAccountService

	lastErr error
}

func (w *conversationWorld) reset() {
	client, accounts := testtool.StartMockAccountGRPCServer(w.t)
	w.accounts = accounts
	w.f = newFixture(w.t, fixtureOpts{accounts: client})
	w.lastErr = nil
}

func (w *conversationWorld) actor(id string) Actor {
	return Actor{ID: id, Role: accountdomain.RoleBusiness}
}

func (w *conversationWorld) businessHasNoSubscription(id string) error {
	w.accounts.Put(accountdomain.Account{ID: id, Role: accountdomain.RoleBusiness, Subscription: accountdomain.NoSubscription()})
	return nil
}

func (w *conversationWorld) businessHasActiveSubscription(id string) error {
	w.accounts.Put(accountdomain.Account{ID: id, Role: accountdomain.RoleBusiness, Subscription: accountdomain.ActiveSubscription()})
	return nil
}

func (w *conversationWorld) receivesRequest(owner, roomID, counterpart string) error {
	room, err := w.f.roomUC.Open(context.Background(), owner, roomID, &domain.OpenHints{
		Kind:          domain.RoomKindDirectMessage,
		CounterpartID: counterpart,
		IsNewRequest:  true,
	})
	if err != nil {
		return err
	}
	if room.State != domain.RoomPending {
		return fmt.Errorf("room %s is %s, want pending", roomID, room.State)
	}
	return nil
}

func (w *conversationWorld) hasMarketplaceConversation(owner, roomID string) error {
	_, err := w.f.roomUC.Open(context.Background(), owner, roomID, &domain.OpenHints{
		Kind:          domain.RoomKindMarketplace,
		CounterpartID: "buyer-" + roomID,
	})
	return err
}

func (w *conversationWorld) sends(owner, body, roomID string) error {
	_, w.lastErr = w.f.messageUC.TrySend(context.Background(), w.actor(owner), roomID, body)
	return nil
}

func (w *conversationWorld) sendsMany(owner string, n int, roomID string) error {
	for i := 0; i < n; i++ {
		if _, err := w.f.messageUC.TrySend(context.Background(), w.actor(owner), roomID, fmt.Sprintf("msg %d", i)); err != nil {
			return fmt.Errorf("send %d: %w", i, err)
		}
	}
	w.lastErr = nil
	return nil
}

func (w *conversationWorld) accepts(owner, roomID string) error {
	_, w.lastErr = w.f.roomUC.Accept(context.Background(), owner, roomID)
	return nil
}

func (w *conversationWorld) rejects(owner, roomID string) error {
	_, w.lastErr = w.f.roomUC.Reject(context.Background(), owner, roomID)
	return w.lastErr
}

func (w *conversationWorld) failsWith(code string) error {
	if w.lastErr == nil {
		return fmt.Errorf("expected %s, got success", code)
	}
	if _, got := ErrorCode(w.lastErr); got != code {
		return fmt.Errorf("expected %s, got %s (%v)", code, got, w.lastErr)
	}
	return nil
}

func (w *conversationWorld) sendSucceeds() error {
	return w.lastErr
}

func (w *conversationWorld) showsMessages(roomID string, n int) error {
	msgs, err := w.f.messageUC.Snapshot(context.Background(), roomID)
	if err != nil {
		return err
	}
	if len(msgs) != n {
		return fmt.Errorf("room %s shows %d messages, want %d", roomID, len(msgs), n)
	}
	return nil
}

func (w *conversationWorld) hoursPass(h int) error {
	w.f.clock.Advance(time.Duration(h) * time.Hour)
	return nil
}

func (w *conversationWorld) monthRollsOver() error {
	w.f.clock.Advance(31 * 24 * time.Hour)
	return nil
}

func (w *conversationWorld) freeMessagesLeft(owner string, n int) error {
	usage, err := w.f.gate.Usage(context.Background(), w.actor(owner))
	if err != nil {
		return err
	}
	if !usage.Metered || usage.Remaining != int64(n) {
		return fmt.Errorf("usage %+v, want %d remaining", usage, n)
	}
	return nil
}

func (w *conversationWorld) notMetered(owner string) error {
	usage, err := w.f.gate.Usage(context.Background(), w.actor(owner))
	if err != nil {
		return err
	}
	if usage.Metered {
		return fmt.Errorf("%s is metered: %+v", owner, usage)
	}
	return nil
}

func (w *conversationWorld) bookingInjected(date, at, label, roomID string, times int) error {
	for i := 0; i < times; i++ {
		_, _, err := w.f.bookingUC.Inject(context.Background(), roomID, domain.BookingPayload{Date: date, Time: at, ServiceLabel: label})
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *conversationWorld) showsBookingNotices(roomID string, n int) error {
	msgs, err := w.f.messageUC.Snapshot(context.Background(), roomID)
	if err != nil {
		return err
	}
	count := 0
	for _, m := range msgs {
		if m.Type == domain.MessageBookingNotice {
			count++
		}
	}
	if count != n {
		return fmt.Errorf("room %s has %d booking notices, want %d", roomID, count, n)
	}
	return nil
}

func TestConversationFeatures(t *testing.T) {
	w := &conversationWorld{t: t}

	suite := godog.TestSuite{
		Name: "conversation",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				w.reset()
				return ctx, nil
			})

			ctx.Step(`^business "([^"]*)" has no subscription$`, w.businessHasNoSubscription)
			ctx.Step(`^business "([^"]*)" has an active subscription$`, w.businessHasActiveSubscription)
			ctx.Step(`^"([^"]*)" receives a direct message request "([^"]*)" from "([^"]*)"$`, w.receivesRequest)
			ctx.Step(`^"([^"]*)" has an active marketplace conversation "([^"]*)"$`, w.hasMarketplaceConversation)
			ctx.Step(`^"([^"]*)" sends "([^"]*)" in "([^"]*)"$`, w.sends)
			ctx.Step(`^"([^"]*)" sends (\d+) messages in "([^"]*)"$`, w.sendsMany)
			ctx.Step(`^"([^"]*)" accepts "([^"]*)"$`, w.accepts)
			ctx.Step(`^"([^"]*)" rejects "([^"]*)"$`, w.rejects)
			ctx.Step(`^the (?:send|transition) fails with "([^"]*)"$`, w.failsWith)
			ctx.Step(`^the send succeeds$`, w.sendSucceeds)
			ctx.Step(`^"([^"]*)" shows (\d+) messages$`, w.showsMessages)
			ctx.Step(`^(\d+) hours pass$`, w.hoursPass)
			ctx.Step(`^the month rolls over$`, w.monthRollsOver)
			ctx.Step(`^"([^"]*)" has (\d+) free messages left$`, w.freeMessagesLeft)
			ctx.Step(`^"([^"]*)" is not metered$`, w.notMetered)
			ctx.Step(`^booking "([^"]*)" "([^"]*)" "([^"]*)" is injected into "([^"]*)" (\d+) times$`, w.bookingInjected)
			ctx.Step(`^"([^"]*)" shows (\d+) booking notice$`, w.showsBookingNotices)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
