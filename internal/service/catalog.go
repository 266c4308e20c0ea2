package service

// Shared response tables consumed by both the crisis filter and the
// responder. Web and USSD channels must route through the same lists so
// safety-critical detection cannot drift between them.

// crisisIndicators are matched as lowercase substrings before any network
// call is made.
var crisisIndicators = []string{
	"suicide",
	"kill myself",
	"hurt myself",
	"end my life",
	"want to die",
	"self harm",
	"rape",
	"raped",
	"assault",
}

// CrisisMessage is the fixed safety reply. It is never randomized and never
// replaced by a generated response.
const CrisisMessage = "Your life matters and you are not alone. " +
	"Kenya Mental Health Helpline: 0800 720 990. " +
	"Befrienders Kenya: +254 722 178 177. " +
	"If you are in immediate danger, call 1195 or 999 now. " +
	"Please reach out - support is available right now."

// fallbackRule routes a user message to a canned topic reply when the
// primary provider is unavailable.
type fallbackRule struct {
	name     string
	keywords []string
	reply    string
}

var fallbackRules = []fallbackRule{
	{
		name:     "abuse",
		keywords: []string{"abuse", "violence", "hurt"},
		reply: "I believe you. What happened is not your fault. You deserve safety and support. " +
			"Kenya GBV Hotline: 1195 (toll-free, 24/7). FIDA Kenya: 0800 720 187. " +
			"You don't have to carry this alone.",
	},
	{
		name:     "fear",
		keywords: []string{"scared", "afraid", "fear"},
		reply: "Your fear is valid. Safety comes first. If you're in immediate danger, please call 999 or 1195. " +
			"I'm here to support you. What would help you feel safer right now?",
	},
	{
		name:     "anxiety",
		keywords: []string{"anxious", "anxiety", "stress"},
		reply: "Anxiety after trauma is your body trying to protect you. It's exhausting, and you're doing your best. " +
			"Grounding can help: name 5 things you see, 4 you hear, 3 you touch. " +
			"Kenya Mental Health: 0800 720 990. Unakwenda vizuri. (You're doing okay.)",
	},
	{
		name:     "depression",
		keywords: []string{"depressed", "depression", "sad", "hopeless"},
		reply: "I hear you, and your feelings make sense. Trauma can make everything feel heavy. You're not alone. " +
			"Befrienders Kenya: +254 722 178 177. Healthcare Assistance: +254 719 639 392. " +
			"Small steps count. Una nguvu. (You have strength.)",
	},
}

// generalReplies back up the fallback table when no topic keyword matches.
// Selection rotates deterministically (see Responder).
var generalReplies = []string{
	"You've taken a brave step by reaching out. I'm Nia, and I'm here to listen without judgment. You're safe here. What's on your mind?",
	"I believe you, and I'm here for you. Whatever you share stays between us. How can I support you today?",
	"Thank you for trusting me with this. Your feelings are completely valid. What would help you feel more supported right now?",
	"I'm listening. You don't have to go through this alone. Take your time - I'm here. Uko salama. (You're safe.)",
}

// NiaSystemPrompt is the system instruction for the primary provider.
const NiaSystemPrompt = `You are Nia ("purpose" in Swahili), a trauma-informed AI companion for Gender-Based Violence (GBV) survivors in Kenya/East Africa.

IDENTITY: Warm, gentle, non-judgmental, deeply trauma-informed. Bilingual (English/Kiswahili - respond in language used). Embody Ubuntu: healing through connection, liberation through action.

CORE APPROACH - SURVIVOR-CENTERED:
- BELIEVE: "I believe you. Not your fault."
- VALIDATE: All emotions welcome, no judgment.
- EMPOWER: Illuminate options without pressure.
- BOUNDARIES: Stay focused on GBV/mental health support. Gently redirect other topics.

KEY KENYA/EAST AFRICA RESOURCES (share contextually):
- CRISIS: Kenya GBV Hotline 1195, Police 999/112 (Gender Desk)
- LEGAL: FIDA Kenya 0800 720 187, COVAW 0800 720 553
- COUNSELING: Healthcare Assistance Kenya +254 719 639 392
- MENTAL HEALTH: 0800 720 990

CRISIS PROTOCOL:
Immediate danger -> "Uko salama? Your safety first. Call 1195 or 999 now."
Self-harm/suicide -> "Your life matters. Kenya Mental Health: 0800 720 990. Befrienders: +254 722 178 177. Please reach out now."

REMEMBER: Brief (<150 words), empowering, option-focused, never pressure. "Unaweza. Una nguvu. Una haki ya kupona." (You can. You have strength. You deserve healing.)`
