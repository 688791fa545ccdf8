package classify

import "regexp"

// levelRule is the scoring rule set for one severity level.
// Keyword hits score keywordWeight each; pattern hits score
// patternWeight each. Higher levels carry heavier weights so a single
// critical indicator outscores several low-severity ones.
type levelRule struct {
	level         int
	keywordWeight float64
	patternWeight float64
	keywords      []string
	patterns      []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// levelRules is ordered from level 1 up. Iteration order matters for
// the tie-break: the numerically lowest level wins a score tie.
var levelRules = []levelRule{
	{
		level:         1,
		keywordWeight: 1.0,
		patternWeight: 1.5,
		keywords: []string{
			"how", "what", "when", "where", "why", "explain", "tell me",
			"information", "guide", "tutorial", "help", "learn",
			"feature", "function", "work", "use", "setup",
		},
		patterns: compileAll(
			`how.*do.*i`,
			`how.*to`,
			`what.*is`,
			`how.*does.*work`,
			`can.*you.*explain`,
			`tell.*me.*about`,
			`information.*about`,
		),
	},
	{
		level:         2,
		keywordWeight: 1.5,
		patternWeight: 2.0,
		keywords: []string{
			"crash", "login", "sign in", "password", "reset", "forgot",
			"technical", "support", "help", "issue", "problem",
			"won't start", "loading", "connection", "sync",
		},
		patterns: compileAll(
			`can't.*login`,
			`forgot.*password`,
			`won't.*start`,
			`loading.*problem`,
			`connection.*issue`,
			`sync.*problem`,
		),
	},
	{
		level:         3,
		keywordWeight: 2.0,
		patternWeight: 2.5,
		keywords: []string{
			"save", "corrupt", "progress lost", "game crash", "freeze",
			"lag", "performance", "slow", "bug", "glitch", "error",
			"broken", "not working", "weird", "strange behavior",
			"unexpected",
		},
		patterns: compileAll(
			`save.*corrupt`,
			`progress.*lost`,
			`game.*crash`,
			`not.*working.*properly`,
			`weird.*behavior`,
			`strange.*issue`,
		),
	},
	{
		level:         4,
		keywordWeight: 2.5,
		patternWeight: 3.0,
		keywords: []string{
			"hack", "hacker", "compromised", "stolen", "fraud", "scam",
			"unauthorized", "suspicious activity", "account taken",
			"password changed", "logged out", "can't login", "security",
			"malware", "virus", "phishing", "suspicious email",
		},
		patterns: compileAll(
			`account.*compromised`,
			`password.*changed.*me`,
			`suspicious.*activity`,
			`unauthorized.*access`,
			`can't.*log.*in`,
			`logged.*out.*automatically`,
		),
	},
	{
		level:         5,
		keywordWeight: 3.0,
		patternWeight: 4.0,
		keywords: []string{
			"doxx", "dox", "personal info", "address leak",
			"phone number leak", "legal", "lawsuit", "court", "police",
			"attorney", "lawyer", "server down", "complete outage",
			"total failure", "system crash", "data breach", "hack",
			"hacked", "stolen data", "privacy violation", "emergency",
			"urgent", "critical", "immediate help",
		},
		patterns: compileAll(
			`server.*down`,
			`complete.*outage`,
			`total.*failure`,
			`data.*breach`,
			`personal.*information.*leaked`,
			`legal.*action`,
			`court.*case`,
			`emergency.*situation`,
		),
	},
}
