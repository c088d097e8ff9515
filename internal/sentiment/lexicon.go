package sentiment

// general holds valence scores in the -5..5 range for common English opinion words.
var general = map[string]int{
	"abandon": -2, "abuse": -3, "admire": 3, "adorable": 3, "amazing": 4, "angry": -3,
	"annoying": -2, "awesome": 4, "awful": -3, "bad": -3, "beautiful": 3, "best": 3,
	"better": 2, "bored": -2, "boring": -3, "brilliant": 4, "broken": -1, "care": 2,
	"cool": 1, "crap": -3, "crazy": -2, "cry": -1, "cute": 2, "damn": -4, "delight": 3,
	"disappointed": -2, "disappointing": -2, "disgusting": -3, "dislike": -2, "dumb": -3,
	"enjoy": 2, "enjoyed": 2, "epic": 3, "excellent": 3, "excited": 3, "fail": -2,
	"failed": -2, "fake": -3, "fantastic": 4, "favorite": 2, "fine": 2, "fun": 4,
	"funny": 4, "good": 3, "gorgeous": 3, "great": 3, "hate": -3, "hated": -3, "happy": 3,
	"helpful": 2, "horrible": -3, "hurt": -2, "ideal": 2, "incredible": 4, "interesting": 2,
	"joy": 3, "kind": 2, "lame": -2, "laugh": 1, "like": 2, "liked": 2, "lol": 3,
	"love": 3, "loved": 3, "lovely": 3, "masterpiece": 4, "nice": 3, "outstanding": 5,
	"pathetic": -2, "perfect": 3, "poor": -2, "pretty": 1, "problem": -2, "recommend": 2,
	"ridiculous": -3, "sad": -2, "scam": -2, "shit": -4, "sick": -2, "smart": 1,
	"sorry": -1, "stupid": -2, "stunning": 4, "superb": 5, "terrible": -3, "thank": 2,
	"thanks": 2, "ugly": -3, "underrated": 2, "useless": -2, "waste": -1, "win": 4,
	"wonderful": 4, "worse": -3, "worst": -3, "wow": 4, "wrong": -2, "yay": 2,
}

// social holds slang and emoji used in comment threads. Entries here win over general.
var social = map[string]int{
	"lit": 2, "fire": 2, "goat": 3, "w": 2, "based": 2, "no cap": 2, "bussin": 2,
	"valid": 1, "clean": 1, "hard": 1, "goes hard": 2, "w rizz": 2, "peak": 2, "elite": 2,
	"l": -2, "mid": -1, "ratio": -1, "cap": -1, "cringe": -2, "trash": -2, "dead": -1,
	"l rizz": -2, "wack": -2,
	"🔥": 2, "💯": 2, "👍": 1, "👎": -1, "❤": 2, "😊": 2, "😢": -1, "😡": -2, "🤮": -3, "💀": -1,
}

// negators flip the score of the token that follows them.
var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "dont": {}, "don't": {}, "isnt": {}, "isn't": {},
	"wasnt": {}, "wasn't": {}, "aint": {}, "ain't": {}, "cant": {}, "can't": {},
}

func lookup(term string) (int, bool) {
	if v, ok := social[term]; ok {
		return v, true
	}
	v, ok := general[term]
	return v, ok
}
