package flow

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lukia-marketing/campaignbot/internal/models"
	"github.com/lukia-marketing/campaignbot/internal/store"
)

// fakeOracle replays scripted replies in order. When the script runs out it
// returns an empty JSON object; when err is set every call fails.
type fakeOracle struct {
	replies []string
	err     error
	calls   int
}

func (f *fakeOracle) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "{}", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

// fakeBackend counts calls and returns canned entities.
type fakeBackend struct {
	campaignCalls int
	eventCalls    int
	activateCalls int
	statusCalls   int

	campaignErr error
	eventErr    error
	activateErr error
	statusErr   error

	group *models.MessageGroup
}

func (f *fakeBackend) CreateCampaign(ctx context.Context, name string) (*models.Campaign, error) {
	f.campaignCalls++
	if f.campaignErr != nil {
		return nil, f.campaignErr
	}
	return &models.Campaign{ID: "camp-1", Name: name}, nil
}

func (f *fakeBackend) CreateEvent(ctx context.Context, input models.EventInput) (*models.Event, error) {
	f.eventCalls++
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	return &models.Event{ID: "evt-1", Name: input.Name, CampaignID: input.CampaignID}, nil
}

func (f *fakeBackend) ActivateEvent(ctx context.Context, eventID string) (*models.Event, error) {
	f.activateCalls++
	if f.activateErr != nil {
		return nil, f.activateErr
	}
	return &models.Event{ID: eventID, Status: "scheduled"}, nil
}

func (f *fakeBackend) GetGroupStatus(ctx context.Context, eventID string) (*models.MessageGroup, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.group, nil
}

func fixedNow() time.Time {
	return time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestEngine(oracle *fakeOracle, backend *fakeBackend, st store.Store) *Engine {
	return NewEngine(oracle, backend, st, WithNow(fixedNow), WithOracleTimeout(time.Second))
}

// seedConfirmedRecord stores a record with every field collected, sitting
// at the confirmation step.
func seedConfirmedRecord(t *testing.T, st store.Store, sessionID string) {
	t.Helper()
	rec := models.NewConversationRecord(sessionID)
	rec.CurrentStep = models.StepConfirmation
	rec.CampaignName = "Verano"
	rec.EventName = "Lanzamiento"
	rec.EventDate = "2030-12-15 18:00"
	rec.Timezone = "America/Bogota"
	rec.Administrators = []string{"573103435489"}
	rec.Context = "Campaña de verano para el lanzamiento"
	if err := st.SaveRecord(*rec); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}
}

func TestHandleTurnGreetingCollectsCampaignName(t *testing.T) {
	oracle := &fakeOracle{replies: []string{`{
		"next_step": "event_name",
		"bot_response": "¡Hola! Anoté la campaña Verano. ¿Cómo se llamará el evento?",
		"processing_status": "idle",
		"is_campaign_related": true,
		"parsed": {"campaign_name": "Verano"}
	}`}}
	backend := &fakeBackend{}
	engine := newTestEngine(oracle, backend, store.NewInMemoryStore())

	rec, err := engine.HandleTurn(context.Background(), "u1", "Hola, quiero crear la campaña Verano")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if rec.CampaignName != "Verano" {
		t.Errorf("campaign name = %q, want Verano", rec.CampaignName)
	}
	if rec.CurrentStep != models.StepEventName {
		t.Errorf("step = %s, want event_name", rec.CurrentStep)
	}
	if rec.ProcessingStatus != models.StatusIdle {
		t.Errorf("status = %s, want idle", rec.ProcessingStatus)
	}
	if rec.BotResponse == "" {
		t.Error("bot response is empty")
	}
	if backend.campaignCalls != 0 {
		t.Errorf("backend touched during collection: %d campaign calls", backend.campaignCalls)
	}
}

func TestHandleTurnConfirmationRunsFullPipeline(t *testing.T) {
	oracle := &fakeOracle{replies: []string{
		`{"next_step": "create_campaign", "bot_response": "¡Perfecto, en marcha!", "processing_status": "idle", "is_campaign_related": true, "parsed": {"user_confirms": true}}`,
		`{"should_create": true, "bot_response": "Creando la campaña..."}`,
		`{"bot_response": "El grupo se está generando, en unos minutos te paso el enlace."}`,
	}}
	backend := &fakeBackend{}
	st := store.NewInMemoryStore()
	seedConfirmedRecord(t, st, "u1")
	engine := newTestEngine(oracle, backend, st)

	rec, err := engine.HandleTurn(context.Background(), "u1", "dale, adelante")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if rec.CurrentStep != models.StepPendingGroup {
		t.Errorf("step = %s, want pending_group", rec.CurrentStep)
	}
	if rec.ProcessingStatus != models.StatusCompleted {
		t.Errorf("status = %s, want completed", rec.ProcessingStatus)
	}
	if rec.CampaignID != "camp-1" || rec.EventID != "evt-1" {
		t.Errorf("ids = (%q, %q), want (camp-1, evt-1)", rec.CampaignID, rec.EventID)
	}
	if rec.PendingEventID != "evt-1" {
		t.Errorf("pending event id = %q, want evt-1", rec.PendingEventID)
	}
	if backend.campaignCalls != 1 || backend.eventCalls != 1 || backend.activateCalls != 1 {
		t.Errorf("backend calls = (%d, %d, %d), want (1, 1, 1)",
			backend.campaignCalls, backend.eventCalls, backend.activateCalls)
	}
	if backend.statusCalls != 0 {
		t.Errorf("status polled during creation: %d calls", backend.statusCalls)
	}

	// The turn was persisted.
	stored, err := st.LoadRecord("u1")
	if err != nil || stored == nil {
		t.Fatalf("stored record = (%v, %v), want persisted record", stored, err)
	}
	if stored.CurrentStep != models.StepPendingGroup {
		t.Errorf("persisted step = %s, want pending_group", stored.CurrentStep)
	}
}

func TestHandleTurnPastDateNeverReachesBackend(t *testing.T) {
	oracle := &fakeOracle{replies: []string{
		`{"next_step": "create_campaign", "bot_response": "ok", "processing_status": "idle", "is_campaign_related": true, "parsed": {"user_confirms": true}}`,
		`{"should_create": true, "bot_response": "Creando la campaña..."}`,
	}}
	backend := &fakeBackend{}
	st := store.NewInMemoryStore()
	seedConfirmedRecord(t, st, "u1")

	// Rewrite the seeded date into the past relative to the pinned clock.
	rec, _ := st.LoadRecord("u1")
	rec.EventDate = "2020-01-01 10:00"
	if err := st.SaveRecord(*rec); err != nil {
		t.Fatalf("failed to reseed record: %v", err)
	}

	engine := newTestEngine(oracle, backend, st)
	out, err := engine.HandleTurn(context.Background(), "u1", "dale, adelante")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if backend.eventCalls != 0 {
		t.Errorf("event created with a past date: %d calls", backend.eventCalls)
	}
	if backend.activateCalls != 0 {
		t.Errorf("activation ran with a past date: %d calls", backend.activateCalls)
	}
	if out.CurrentStep != models.StepEventDate {
		t.Errorf("step = %s, want event_date", out.CurrentStep)
	}
	if out.ProcessingStatus != models.StatusIdle {
		t.Errorf("status = %s, want idle", out.ProcessingStatus)
	}
	if !strings.Contains(out.BotResponse, "futura") {
		t.Errorf("bot response %q does not ask for a future date", out.BotResponse)
	}
}

func TestHandleTurnOracleFailureApologizes(t *testing.T) {
	oracle := &fakeOracle{err: fmt.Errorf("connection refused")}
	backend := &fakeBackend{}
	st := store.NewInMemoryStore()

	rec := models.NewConversationRecord("u1")
	rec.CurrentStep = models.StepEventDate
	rec.CampaignName = "Verano"
	if err := st.SaveRecord(*rec); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	engine := newTestEngine(oracle, backend, st)
	out, err := engine.HandleTurn(context.Background(), "u1", "el 15 de diciembre")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if out.BotResponse != msgRouterApology {
		t.Errorf("bot response = %q, want apology", out.BotResponse)
	}
	if out.CurrentStep != models.StepEventDate {
		t.Errorf("step changed to %s on oracle failure", out.CurrentStep)
	}
	if out.ProcessingStatus != models.StatusIdle {
		t.Errorf("status = %s, want idle", out.ProcessingStatus)
	}
}

func TestHandleTurnStatusPollDeliversLink(t *testing.T) {
	link := "https://chat.whatsapp.com/ABC123"
	oracle := &fakeOracle{replies: []string{
		`{"next_step": "check_status", "bot_response": "déjame revisar", "processing_status": "checking_status", "is_campaign_related": true, "parsed": {}}`,
		`{"should_check": true}`,
		`{"bot_response": "🎉 ¡Listo! Tu grupo: https://chat.whatsapp.com/ABC123"}`,
	}}
	backend := &fakeBackend{group: &models.MessageGroup{ID: "grp-1", EventID: "evt-1", Link: link}}
	st := store.NewInMemoryStore()

	rec := models.NewConversationRecord("u1")
	rec.CurrentStep = models.StepPendingGroup
	rec.ProcessingStatus = models.StatusCompleted
	rec.CampaignName = "Verano"
	rec.EventName = "Lanzamiento"
	rec.EventID = "evt-1"
	rec.PendingEventID = "evt-1"
	if err := st.SaveRecord(*rec); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	engine := newTestEngine(oracle, backend, st)
	out, err := engine.HandleTurn(context.Background(), "u1", "¿ya está el enlace del grupo?")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if backend.statusCalls != 1 {
		t.Errorf("status calls = %d, want 1", backend.statusCalls)
	}
	if out.GroupURL != link {
		t.Errorf("group url = %q, want %q", out.GroupURL, link)
	}
	if out.CurrentStep != models.StepCompleted || out.ProcessingStatus != models.StatusCompleted {
		t.Errorf("(step, status) = (%s, %s), want (completed, completed)", out.CurrentStep, out.ProcessingStatus)
	}
	// The checker's phrased reply is final: the turn ends without another
	// node running, so the link reaches the user intact.
	if !strings.Contains(out.BotResponse, link) {
		t.Errorf("bot response %q does not carry the link", out.BotResponse)
	}
	if oracle.calls != 3 {
		t.Errorf("oracle calls = %d, want 3 (router, gate, phrasing)", oracle.calls)
	}
}

func TestHandleTurnCompletedSessionReachesCompletion(t *testing.T) {
	// A finished campaign whose status fell back to idle (e.g. the user
	// declined "¿creamos otra?" on an earlier turn) must still reach the
	// completion node, or the conversational reset is lost for good.
	oracle := &fakeOracle{replies: []string{
		`{"next_step": "completed", "bot_response": "claro", "processing_status": "idle", "is_campaign_related": true, "parsed": {}}`,
		`{"action": "new_campaign", "bot_response": "¡Vamos con otra! ¿Cómo se llama?", "reset_state": true}`,
	}}
	st := store.NewInMemoryStore()

	rec := models.NewConversationRecord("u1")
	rec.CurrentStep = models.StepCompleted
	rec.ProcessingStatus = models.StatusIdle
	rec.CampaignName = "Verano"
	rec.CampaignID = "camp-1"
	rec.EventID = "evt-1"
	rec.GroupURL = "https://chat.whatsapp.com/ABC123"
	if err := st.SaveRecord(*rec); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	engine := newTestEngine(oracle, &fakeBackend{}, st)
	out, err := engine.HandleTurn(context.Background(), "u1", "quiero otra campaña")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if out.CurrentStep != models.StepCampaignName {
		t.Errorf("step = %s, want campaign_name after reset", out.CurrentStep)
	}
	if out.CampaignName != "" || out.GroupURL != "" {
		t.Errorf("collected fields survived the reset: %q %q", out.CampaignName, out.GroupURL)
	}
	if out.SessionID != "u1" {
		t.Errorf("session id changed to %q", out.SessionID)
	}
}

func TestHandleTurnAlwaysAnswers(t *testing.T) {
	// Oracle returns a structurally empty object: no next_step, no
	// bot_response. The turn must still produce a reply and a valid step.
	oracle := &fakeOracle{}
	backend := &fakeBackend{}
	engine := newTestEngine(oracle, backend, store.NewInMemoryStore())

	out, err := engine.HandleTurn(context.Background(), "u1", "hola")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if out.BotResponse == "" {
		t.Error("bot response is empty")
	}
	if !models.IsValidStep(out.CurrentStep) {
		t.Errorf("step %q is not a known step", out.CurrentStep)
	}
}

func TestHandleTurnAppendsMessageLog(t *testing.T) {
	oracle := &fakeOracle{}
	engine := newTestEngine(oracle, &fakeBackend{}, store.NewInMemoryStore())

	out, err := engine.HandleTurn(context.Background(), "u1", "hola")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if len(out.MessageLog) != 2 {
		t.Fatalf("message log has %d entries, want 2", len(out.MessageLog))
	}
	if out.MessageLog[0].Role != "user" || out.MessageLog[0].Content != "hola" {
		t.Errorf("first entry = %+v, want the user message", out.MessageLog[0])
	}
	if out.MessageLog[1].Role != "assistant" || out.MessageLog[1].Content != out.BotResponse {
		t.Errorf("second entry = %+v, want the assistant reply", out.MessageLog[1])
	}

	out2, err := engine.HandleTurn(context.Background(), "u1", "quiero una campaña")
	if err != nil {
		t.Fatalf("second HandleTurn failed: %v", err)
	}
	if len(out2.MessageLog) != 4 {
		t.Errorf("message log has %d entries after two turns, want 4", len(out2.MessageLog))
	}
}

func TestHandleTurnRequiresSessionID(t *testing.T) {
	engine := newTestEngine(&fakeOracle{}, &fakeBackend{}, store.NewInMemoryStore())
	if _, err := engine.HandleTurn(context.Background(), "", "hola"); err == nil {
		t.Fatal("expected an error for an empty session id")
	}
}

func TestGroupActivatorGuardBlocksBackend(t *testing.T) {
	backend := &fakeBackend{}
	node := NewGroupActivator(&fakeOracle{}, backend, time.Second)

	tests := []struct {
		name   string
		status models.Status
		event  string
	}{
		{name: "wrong status", status: models.StatusPending, event: "evt-1"},
		{name: "missing event id", status: models.StatusCreatingGroup, event: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := models.NewConversationRecord("u1")
			rec.ProcessingStatus = tc.status
			rec.EventID = tc.event

			node.Run(context.Background(), rec)

			if backend.activateCalls != 0 {
				t.Errorf("backend activated despite guard: %d calls", backend.activateCalls)
			}
			if rec.CurrentStep != models.StepError || rec.ProcessingStatus != models.StatusError {
				t.Errorf("(step, status) = (%s, %s), want (error, error)", rec.CurrentStep, rec.ProcessingStatus)
			}
		})
	}
}

func TestStatusCheckerReadyIsIdempotent(t *testing.T) {
	link := "https://chat.whatsapp.com/ABC123"
	backend := &fakeBackend{group: &models.MessageGroup{ID: "grp-1", Link: link}}
	// A failing oracle exercises the canned fallbacks on both calls.
	node := NewStatusChecker(&fakeOracle{err: fmt.Errorf("down")}, backend, time.Second)

	rec := models.NewConversationRecord("u1")
	rec.EventID = "evt-1"
	rec.ProcessingStatus = models.StatusCheckingStatus

	for i := 0; i < 2; i++ {
		node.Run(context.Background(), rec)
		if rec.CurrentStep != models.StepCompleted || rec.ProcessingStatus != models.StatusCompleted {
			t.Fatalf("run %d: (step, status) = (%s, %s), want (completed, completed)", i+1, rec.CurrentStep, rec.ProcessingStatus)
		}
		if rec.GroupURL != link {
			t.Fatalf("run %d: group url = %q, want %q", i+1, rec.GroupURL, link)
		}
		if !strings.Contains(rec.BotResponse, link) {
			t.Fatalf("run %d: bot response %q does not carry the link", i+1, rec.BotResponse)
		}
	}
	if backend.statusCalls != 2 {
		t.Errorf("status calls = %d, want 2", backend.statusCalls)
	}
}

func TestStatusCheckerWithoutEventIDAsksForIt(t *testing.T) {
	backend := &fakeBackend{}
	node := NewStatusChecker(&fakeOracle{replies: []string{`{"should_check": true}`}}, backend, time.Second)

	rec := models.NewConversationRecord("u1")
	node.Run(context.Background(), rec)

	if backend.statusCalls != 0 {
		t.Errorf("lookup ran without an event id: %d calls", backend.statusCalls)
	}
	if rec.CurrentStep != models.StepWait || rec.ProcessingStatus != models.StatusPending {
		t.Errorf("(step, status) = (%s, %s), want (wait, pending)", rec.CurrentStep, rec.ProcessingStatus)
	}
	if rec.BotResponse != msgAskEventID {
		t.Errorf("bot response = %q, want request for the event id", rec.BotResponse)
	}
}

func TestCompletionNewCampaignResetsRecord(t *testing.T) {
	node := NewCompletion(&fakeOracle{replies: []string{
		`{"action": "new_campaign", "bot_response": "¡Vamos con otra! ¿Cómo se llama?", "reset_state": true}`,
	}}, time.Second)

	rec := models.NewConversationRecord("u1")
	rec.CurrentStep = models.StepCompleted
	rec.ProcessingStatus = models.StatusCompleted
	rec.CampaignName = "Verano"
	rec.CampaignID = "camp-1"
	rec.EventID = "evt-1"
	rec.GroupURL = "https://chat.whatsapp.com/ABC123"
	rec.AppendMessage("user", "quiero otra campaña")
	logLen := len(rec.MessageLog)

	node.Run(context.Background(), rec)

	if rec.SessionID != "u1" {
		t.Errorf("session id changed to %q on reset", rec.SessionID)
	}
	if rec.CurrentStep != models.StepCampaignName {
		t.Errorf("step = %s, want campaign_name", rec.CurrentStep)
	}
	if rec.CampaignName != "" || rec.CampaignID != "" || rec.EventID != "" || rec.GroupURL != "" {
		t.Error("collected fields survived the reset")
	}
	if len(rec.MessageLog) != logLen {
		t.Errorf("message log length changed from %d to %d on reset", logLen, len(rec.MessageLog))
	}
	if rec.BotResponse == "" {
		t.Error("bot response is empty after reset")
	}
}

func TestEngineResetDeletesSession(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := newTestEngine(&fakeOracle{}, &fakeBackend{}, st)

	if _, err := engine.HandleTurn(context.Background(), "u1", "hola"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if err := engine.Reset(context.Background(), "u1"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	snap, err := engine.Snapshot(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap != nil {
		t.Errorf("snapshot after reset = %+v, want nil", snap)
	}
}

func TestRouterMechanicalPhoneFallback(t *testing.T) {
	// Oracle extracts nothing; the raw digits must still land in the
	// record because the session sits on the admins step.
	oracle := &fakeOracle{replies: []string{
		`{"next_step": "admins", "bot_response": "¿Esos son los administradores?", "processing_status": "idle", "is_campaign_related": true, "parsed": {}}`,
	}}
	st := store.NewInMemoryStore()
	rec := models.NewConversationRecord("u1")
	rec.CurrentStep = models.StepAdmins
	if err := st.SaveRecord(*rec); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	engine := newTestEngine(oracle, &fakeBackend{}, st)
	out, err := engine.HandleTurn(context.Background(), "u1", "agrega a +573103435489 y 573001112233")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if len(out.Administrators) != 2 {
		t.Fatalf("administrators = %v, want 2 numbers", out.Administrators)
	}
	if out.Administrators[0] != "+573103435489" || out.Administrators[1] != "573001112233" {
		t.Errorf("administrators = %v, want extracted numbers verbatim", out.Administrators)
	}
}

func TestRouterOutOfContext(t *testing.T) {
	oracle := &fakeOracle{replies: []string{
		`{"next_step": "out_of_context", "bot_response": "Mi función es ayudarte con campañas. ¿Creamos una?", "processing_status": "out_of_context", "is_campaign_related": false, "parsed": {"campaign_name": "no aplica"}}`,
	}}
	st := store.NewInMemoryStore()
	engine := newTestEngine(oracle, &fakeBackend{}, st)

	out, err := engine.HandleTurn(context.Background(), "u1", "¿qué clima hace hoy?")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if out.CurrentStep != models.StepOutOfContext || out.ProcessingStatus != models.StatusOutOfContext {
		t.Errorf("(step, status) = (%s, %s), want (out_of_context, out_of_context)", out.CurrentStep, out.ProcessingStatus)
	}
	if out.CampaignName != "" {
		t.Errorf("parsed fields applied on an out-of-context turn: %q", out.CampaignName)
	}
}
