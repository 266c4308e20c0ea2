package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"heal-engine/internal/domain"
	"heal-engine/internal/email"
)

// ussdMaxReplyLen is the character budget for AI replies on the USSD channel.
const ussdMaxReplyLen = 160

const ussdGoodbye = "END Thank you for using HEAL. Stay safe."

// stepResult is one state-machine transition outcome. terminal responses
// (END) destroy the session immediately.
type stepResult struct {
	text     string
	terminal bool
}

type stepFunc func(ctx context.Context, sess *domain.UssdSession, input, fullText string) stepResult

// UssdService drives the menu state machine for the USSD gateway. Each state
// has one step function; anything unmatched falls through to a terminal
// goodbye so the store never holds a dangling session.
type UssdService struct {
	logger    *zap.Logger
	store     UssdSessionStore
	responder *Responder
	notifier  email.Sender
	locks     *keyedMutex
	steps     map[domain.Menu]stepFunc
}

func NewUssdService(logger *zap.Logger, store UssdSessionStore, responder *Responder, notifier email.Sender) *UssdService {
	s := &UssdService{
		logger:    logger,
		store:     store,
		responder: responder,
		notifier:  notifier,
		locks:     newKeyedMutex(),
	}
	s.steps = map[domain.Menu]stepFunc{
		domain.MenuLanguage:       s.stepLanguage,
		domain.MenuMain:           s.stepMain,
		domain.MenuChat:           s.stepChat,
		domain.MenuReportPhone:    s.stepReportPhone,
		domain.MenuReportLocation: s.stepReportLocation,
		domain.MenuReportType:     s.stepReportType,
	}
	return s
}

// Handle processes one gateway request. text is the full *-joined input
// trail; the current input is its last segment. The reply always starts with
// CON or END, even on internal faults.
func (s *UssdService) Handle(ctx context.Context, sessionID, phoneNumber, text string) string {
	if sessionID == "" {
		return ussdGoodbye
	}

	// Gateway retries can race on the same id.
	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.logger.Error("ussd store get failed", zap.Error(err), zap.String("ussd_session_id", sessionID))
		return ussdGoodbye
	}
	if sess == nil {
		sess = &domain.UssdSession{
			ID:          sessionID,
			PhoneNumber: phoneNumber,
			Menu:        domain.MenuLanguage,
		}
	}

	input := lastSegment(text)

	step, ok := s.steps[sess.Menu]
	if !ok {
		s.evict(ctx, sessionID)
		return ussdGoodbye
	}

	res := step(ctx, sess, input, text)
	if res.terminal {
		s.evict(ctx, sessionID)
	} else if err := s.store.Put(ctx, sess); err != nil {
		s.logger.Error("ussd store put failed", zap.Error(err), zap.String("ussd_session_id", sessionID))
	}
	return res.text
}

func (s *UssdService) evict(ctx context.Context, sessionID string) {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("ussd store delete failed", zap.Error(err), zap.String("ussd_session_id", sessionID))
	}
}

func (s *UssdService) stepLanguage(_ context.Context, sess *domain.UssdSession, input, fullText string) stepResult {
	if fullText == "" {
		return stepResult{text: "CON Welcome to HEAL - Your GBV Support Platform\n\n1. Continue in English\n2. Switch to Kiswahili"}
	}
	switch input {
	case "1":
		sess.Language = domain.LanguageEnglish
		sess.Menu = domain.MenuMain
		return stepResult{text: mainMenu(sess.Language)}
	case "2":
		sess.Language = domain.LanguageKiswahili
		sess.Menu = domain.MenuMain
		return stepResult{text: mainMenu(sess.Language)}
	}
	return stepResult{text: "CON Invalid option.\n\n1. English\n2. Kiswahili"}
}

func (s *UssdService) stepMain(_ context.Context, sess *domain.UssdSession, input, _ string) stepResult {
	switch input {
	case "1":
		sess.Menu = domain.MenuChat
		return stepResult{text: "CON I'm Nia, your AI therapist.\nWhat's on your mind?"}
	case "2":
		return stepResult{text: helpResources(sess.Language), terminal: true}
	case "3":
		sess.Menu = domain.MenuReportPhone
		return stepResult{text: reportPrompt(sess.Language, "phone")}
	}
	return stepResult{text: "CON Invalid choice. Please try again.\n" + strings.TrimPrefix(mainMenu(sess.Language), "CON ")}
}

func (s *UssdService) stepChat(ctx context.Context, sess *domain.UssdSession, input, _ string) stepResult {
	if input == "0" {
		sess.Menu = domain.MenuMain
		return stepResult{text: mainMenu(sess.Language)}
	}

	// Same intercept as the web channel, before any provider call.
	if CrisisDetected(input) {
		return stepResult{text: "CON " + truncateForUssd(CrisisMessage, ussdMaxReplyLen) + "\n\nReply 0 to return to main menu"}
	}

	reply, _, err := s.responder.Generate(ctx, nil, input)
	if err != nil {
		// Empty input; keep the caller in the chat state.
		return stepResult{text: "CON What's on your mind?\n\nReply 0 to return to main menu"}
	}
	return stepResult{text: "CON " + truncateForUssd(reply, ussdMaxReplyLen) + "\n\nReply 0 to return to main menu"}
}

func (s *UssdService) stepReportPhone(_ context.Context, sess *domain.UssdSession, input, _ string) stepResult {
	sess.Report.Phone = input
	sess.Menu = domain.MenuReportLocation
	return stepResult{text: reportPrompt(sess.Language, "location")}
}

func (s *UssdService) stepReportLocation(_ context.Context, sess *domain.UssdSession, input, _ string) stepResult {
	sess.Report.Location = input
	sess.Menu = domain.MenuReportType
	return stepResult{text: reportPrompt(sess.Language, "type")}
}

func (s *UssdService) stepReportType(ctx context.Context, sess *domain.UssdSession, input, _ string) stepResult {
	switch input {
	case "1":
		sess.Report.Type = "Physical"
	case "2":
		sess.Report.Type = "Sexual"
	default:
		return stepResult{text: ussdGoodbye, terminal: true}
	}

	s.notifyReport(domain.CaseReport{
		SessionID:    sess.ID,
		PhoneNumber:  sess.PhoneNumber,
		ContactPhone: sess.Report.Phone,
		Location:     sess.Report.Location,
		AbuseType:    sess.Report.Type,
		Language:     sess.Language,
		ReportedAt:   time.Now().UTC(),
	})
	return stepResult{text: reportConfirmation(sess.Language), terminal: true}
}

// notifyReport hands the completed report to the support inbox without ever
// blocking or failing the gateway reply.
func (s *UssdService) notifyReport(report domain.CaseReport) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.SendCaseReport(ctx, report); err != nil {
			s.logger.Warn("case report notification failed", zap.Error(err), zap.String("ussd_session_id", report.SessionID))
			return
		}
		s.logger.Info("case report delivered", zap.String("ussd_session_id", report.SessionID))
	}()
}

func mainMenu(lang string) string {
	if lang == domain.LanguageKiswahili {
		return "CON Karibu kwenye HEAL:\n\n1. Ongea na Nia (AI Msaidizi)\n2. Pata Msaada Sasa\n3. Ripoti Kisa"
	}
	return "CON Main Menu:\n\n1. Chat with Nia (AI Therapist)\n2. Get Help Now\n3. Report a Case"
}

func helpResources(lang string) string {
	if lang == domain.LanguageKiswahili {
		return "END MSAADA WA HARAKA:\n- Hotline ya GBV: 1195\n- Kituo cha Uokoaji: 0800 720 187\n- CHV Toll Free: 0800 720 553"
	}
	return "END EMERGENCY HELP:\n- GBV Hotline: 1195\n- Rescue Center: 0800 720 187\n- CHV Toll-Free: 0800 720 553"
}

func reportPrompt(lang, step string) string {
	if lang == domain.LanguageKiswahili {
		switch step {
		case "phone":
			return "CON Tafadhali weka namba yako ya simu:"
		case "location":
			return "CON Weka eneo lako:"
		case "type":
			return "CON Aina ya unyanyasaji:\n1. Kimwili\n2. Kingono"
		}
	}
	switch step {
	case "phone":
		return "CON Please enter your phone number:"
	case "location":
		return "CON Enter your location:"
	}
	return "CON Type of abuse:\n1. Physical\n2. Sexual"
}

func reportConfirmation(lang string) string {
	if lang == domain.LanguageKiswahili {
		return "END Asante kwa kuripoti. Timu yetu itawasiliana nawe hivi karibuni."
	}
	return "END Thank you for reporting. Our team will reach out soon."
}

// lastSegment extracts the current input from the *-joined trail.
func lastSegment(text string) string {
	if text == "" {
		return ""
	}
	parts := strings.Split(text, "*")
	return parts[len(parts)-1]
}

// truncateForUssd cuts text to the USSD budget at a word boundary, appending
// an ellipsis marker so replies are never cut silently.
func truncateForUssd(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	cut := string(runes[:max-3])
	if idx := strings.LastIndexAny(cut, " \n"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \n") + "..."
}
