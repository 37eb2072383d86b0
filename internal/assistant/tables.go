package assistant

import "reeldesk/internal/billing"

// Topic names a family of canned answers.
type Topic string

const (
	TopicSubmission   Topic = "submission"
	TopicDistribution Topic = "distribution"
	TopicRevenue      Topic = "revenue"
	TopicInvestment   Topic = "investment"
	TopicHelp         Topic = "help"
	TopicGeneral      Topic = "general"
	TopicEscalation   Topic = "escalation"
)

// escalationPhrases route a question to a human because answering needs the
// customer's own records.
var escalationPhrases = []string{
	"my account",
	"my earnings",
	"my payout",
	"my balance",
	"my revenue",
	"my commission",
	"my payment",
	"my invoice",
	"my subscription",
	"my contract",
	"my bank",
	"my tax",
	"speak to a human",
	"talk to a human",
	"speak to someone",
	"talk to someone",
	"real person",
	"support agent",
	"customer service",
}

type branch struct {
	name     string
	keywords []string
	text     string
}

type topicEntry struct {
	topic    Topic
	keywords []string
	// branches are tried in order; the last one is the fallback.
	branches []branch
}

var topicTable = []topicEntry{
	{
		topic:    TopicSubmission,
		keywords: []string{"submit", "submission", "upload", "send my film", "apply"},
		branches: []branch{
			{
				name:     "status",
				keywords: []string{"status", "review", "approved", "accepted", "rejected", "how long", "waiting"},
				text:     "Submissions are reviewed within 10 business days. You can follow the review status on the Films page of your dashboard, and we email you as soon as a decision is made.",
			},
			{
				name:     "requirements",
				keywords: []string{"format", "requirement", "codec", "resolution", "file type", "subtitle", "caption", "trailer", "poster", "artwork"},
				text:     "We accept ProRes or H.264 masters at 1080p or higher, with stereo or 5.1 audio. Each submission needs a poster, a trailer, and English subtitles or captions.",
			},
			{
				name:     "fees",
				keywords: []string{"fee", "cost", "price", "charge", "free"},
				text:     "Submitting a film is free on every plan. Fees only apply as commission on revenue once your film is distributed.",
			},
			{
				name: "process",
				text: "To submit a film, open the Films page, choose New Submission, fill in the title details, and upload your master file with its artwork. You will receive a confirmation once the upload is complete.",
			},
		},
	},
	{
		topic:    TopicDistribution,
		keywords: []string{"distribut", "platform", "stream", "release", "netflix", "amazon", "apple tv", "tubi", "itunes", "where will"},
		branches: []branch{
			{
				name:     "platforms",
				keywords: []string{"which", "what platform", "where", "netflix", "amazon", "apple tv", "tubi", "itunes", "list"},
				text:     "We deliver to major transactional and ad-supported platforms, including Amazon Prime Video, Apple TV, Google TV, Tubi, and Plex. Availability depends on each platform's acceptance of the title.",
			},
			{
				name:     "limits",
				keywords: []string{"how many", "limit", "plan", "upgrade", "more platforms"},
				text:     "The number of platforms depends on your plan: " + billing.PlatformSummary() + ". You can upgrade at any time from the Billing page.",
			},
			{
				name:     "timeline",
				keywords: []string{"when", "how long", "timeline", "date", "live"},
				text:     "Once a film is approved, delivery usually takes 4 to 8 weeks, depending on each platform's own quality control.",
			},
			{
				name: "overview",
				text: "After your film is approved we prepare the deliverables and send them to the platforms on your plan. You can track each platform's delivery status from the Distribution page.",
			},
		},
	},
	{
		topic:    TopicRevenue,
		keywords: []string{"revenue", "earning", "royalt", "payout", "paid", "money", "commission", "income"},
		branches: []branch{
			{
				name:     "commission",
				keywords: []string{"commission", "cut", "percent", "take", "share"},
				text:     "Our commission depends on your plan: " + billing.CommissionSummary() + " of net platform revenue.",
			},
			{
				name:     "schedule",
				keywords: []string{"when", "schedule", "monthly", "how often", "date"},
				text:     "Revenue is paid monthly, around 45 days after the end of each month, once platform reports arrive.",
			},
			{
				name: "reports",
				text: "Revenue reports are published on the Revenue page each month, broken down by platform and territory.",
			},
		},
	},
	{
		topic:    TopicInvestment,
		keywords: []string{"invest", "funding", "financ", "backer", "equity"},
		branches: []branch{
			{
				name:     "returns",
				keywords: []string{"return", "profit", "risk", "recoup"},
				text:     "Investors are repaid from the film's revenue share after distribution costs. Returns are not guaranteed and depend on the film's performance.",
			},
			{
				name: "overview",
				text: "Filmmakers can open a funding round for a project from the Investment page. Backers pledge toward a target and share in the film's revenue once it is distributed.",
			},
		},
	},
	{
		topic:    TopicHelp,
		keywords: []string{"help", "support", "problem", "issue", "error", "not working", "password", "login", "log in", "sign in"},
		branches: []branch{
			{
				name:     "login",
				keywords: []string{"password", "login", "log in", "sign in", "locked"},
				text:     "You can reset your password from the sign in page with Forgot Password. If the reset email does not arrive, check your spam folder or ask to speak to a human.",
			},
			{
				name:     "bug",
				keywords: []string{"error", "bug", "broken", "not working", "crash"},
				text:     "Sorry about that. Please tell us what you were doing when the problem appeared, and include any error message. Ask to speak to a human if you need an agent.",
			},
			{
				name: "contact",
				text: "I can answer questions about submissions, distribution, revenue, and investment. For anything about your own account, ask to speak to a human and an agent will join.",
			},
		},
	},
}

const (
	generalText  = "I can help with film submissions, distribution, revenue, and investment. Try asking something like \"How do I submit my film?\""
	signInText   = "To look at your account details I need to know who you are. Please sign in, then ask again and I will connect you with a support agent."
	transferText = "That question needs someone who can see your account. I am connecting you with a support agent now."

	staffAccountText = "Account questions are answered from the customer's records. Open the customer's room from the desk to look them up."
)

type suggestionRule struct {
	keywords []string
	prompts  []string
}

var suggestionRules = []suggestionRule{
	{
		keywords: []string{"submit", "upload", "film", "movie"},
		prompts:  []string{"What file formats do you accept?", "How long does review take?"},
	},
	{
		keywords: []string{"distribut", "platform", "stream", "release"},
		prompts:  []string{"Which platforms do you distribute to?", "How many platforms does my plan include?"},
	},
	{
		keywords: []string{"revenue", "money", "earn", "paid", "payout"},
		prompts:  []string{"When are payouts sent?", "What commission do you take?"},
	},
	{
		keywords: []string{"invest", "fund", "backer"},
		prompts:  []string{"How does film investment work?"},
	},
	{
		keywords: []string{"plan", "upgrade", "pricing", "pro plan", "premium"},
		prompts:  []string{"What does the Pro plan include?"},
	},
}

var defaultSuggestions = []string{
	"How do I submit my film?",
	"Which platforms do you distribute to?",
	"Speak to a human",
}
