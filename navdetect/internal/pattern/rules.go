package pattern

import "regexp"

// Rule is one weighted match pattern for an intent.
type Rule struct {
	Re     *regexp.Regexp
	Weight int
	Tag    string
}

// Penalty is a direction-agnostic deduction for generic non-navigation
// vocabulary. Penalties are additive and apply to both intents.
type Penalty struct {
	Re      *regexp.Regexp
	Penalty int
	Tag     string
}

// vetoes forcibly disqualify text from any intent. Order-independent: the
// set is a logical OR. They target interactive vocabulary that routinely
// carries directional words without being navigation (community handles,
// account actions, commerce).
var vetoes = []*regexp.Regexp{
	regexp.MustCompile(`\br/\w+\b`),       // subreddit-style community handle
	regexp.MustCompile(`\bu/[\w-]+\b`),    // user handle
	regexp.MustCompile(`(^| )@\w+`),       // mention
	regexp.MustCompile(`\b(sign|log)\s?(in|out)\b`),
	regexp.MustCompile(`\bunsubscribe\b`),
	regexp.MustCompile(`\b(add to cart|checkout)\b`),
}

var nextRules = []Rule{
	{regexp.MustCompile(`\bnext\b`), 12, "word-next"},
	{regexp.MustCompile(`next\s+(page|post|article|chapter|episode|story|photo|image|item)`), 10, "phrase-next"},
	{regexp.MustCompile(`[»›⟩❯▶➡→]`), 8, "arrow-next"},
	{regexp.MustCompile(`\b(chevron|arrow|caret|angle)[-_ ]?right\b`), 9, "icon-right"},
	{regexp.MustCompile(`^\s*>{1,2}\s*$`), 8, "bare-gt"},
	{regexp.MustCompile(`\bcontinue\b`), 8, "continue"},
	{regexp.MustCompile(`\bolder( posts?| entries)?\b`), 6, "older"},
	{regexp.MustCompile(`\bforward\b`), 6, "word-forward"},
	{regexp.MustCompile(`\b(siguiente|suivant|weiter)\b`), 8, "intl-next"},
	{regexp.MustCompile(`\bmore\b`), 4, "more"},
}

var prevRules = []Rule{
	{regexp.MustCompile(`\bprev(ious)?\b`), 12, "word-prev"},
	{regexp.MustCompile(`previous\s+(page|post|article|chapter|episode|story|photo|image|item)`), 10, "phrase-prev"},
	{regexp.MustCompile(`[«‹⟨❮◀⬅←]`), 8, "arrow-prev"},
	{regexp.MustCompile(`\b(chevron|arrow|caret|angle)[-_ ]?left\b`), 9, "icon-left"},
	{regexp.MustCompile(`^\s*<{1,2}\s*$`), 8, "bare-lt"},
	{regexp.MustCompile(`\bnewer( posts?| entries)?\b`), 6, "newer"},
	{regexp.MustCompile(`\b(anterior|précédent|zurück)\b`), 8, "intl-prev"},
	{regexp.MustCompile(`\bback\b`), 5, "word-back"},
	{regexp.MustCompile(`\bearlier\b`), 4, "earlier"},
}

var penalties = []Penalty{
	{regexp.MustCompile(`\b(comments?|share|like|save|bookmark)\b`), -6, "social"},
	{regexp.MustCompile(`\b(home|menu|search|settings|profile)\b`), -5, "site-nav"},
	{regexp.MustCompile(`\b(subscribe|follow|join)\b`), -6, "membership"},
	{regexp.MustCompile(`\b(download|install|upload)\b`), -4, "transfer"},
	{regexp.MustCompile(`\b(sponsored|advertisement|promoted)\b`), -8, "ads"},
}

// paginationMarker identifies pager containers/classes.
var paginationMarker = regexp.MustCompile(`\b(pagination|pager|paginat\w*|page[-_]?nav\w*)\b`)

// navClassMarker identifies direction/nav class tokens for the ranking bonus.
var navClassMarker = regexp.MustCompile(`\b(nav|navigation|next|prev|previous|forward|back)\b`)

// directionalNext / directionalPrev detect the directional half of a
// pagination class combination.
var (
	directionalNext = regexp.MustCompile(`(next|forward|right)`)
	directionalPrev = regexp.MustCompile(`(prev|previous|back|left)`)
)

// overlayContext matches ancestor/icon tokens of lightbox and overlay UIs.
var overlayContext = regexp.MustCompile(`(lightbox|overlay|modal|gallery|carousel|slideshow|swiper|fancybox)`)

// episodicContext matches ancestor/icon tokens of episodic or
// paginated-media readers.
var episodicContext = regexp.MustCompile(`(episode|chapter|manga|comic|webtoon|reader|player|playlist|season)`)
