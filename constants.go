package analyzer

// failureSentinel is the content placed in a record when extraction produced
// nothing usable. Downstream validation rejects any content containing it.
const failureSentinel = "could not extract meaningful content"

// sentinelPhrases indicate a block page, paywall or error page rather than
// real article text. Matching is case-insensitive substring. The single list
// is shared by both fetch tiers and by final validation so the checks cannot
// drift apart.
var sentinelPhrases = []string{
	failureSentinel,
	"page load error",
	"access denied",
	"captcha",
	"just a moment",
	"checking your browser",
	"are you a robot",
	"enable javascript and cookies",
	"subscribe to continue reading",
}

// adSrcKeywords flag image sources served from ad networks.
var adSrcKeywords = []string{
	"doubleclick",
	"googlesyndication",
	"adsystem",
	"adservice",
	"adserver",
	"/ads/",
	"outbrain",
	"taboola",
	"criteo",
	"moatads",
}

// adTextKeywords flag sponsorship wording in image alt/title text.
var adTextKeywords = []string{
	"advertisement",
	"sponsored",
	"promotion",
	"promo",
	"paid content",
}

// skipAncestorKeywords flag containers whose descendants are decoration
// rather than article imagery: ads, thumbnails, social chrome, related-story
// rails. Tested against the accumulated class/id/href tokens of the full
// ancestor chain.
var skipAncestorKeywords = []string{
	"ad",
	"advertisement",
	"sponsor",
	"promo",
	"related",
	"sidebar",
	"preview",
	"thumbnail",
	"icon",
	"logo",
	"banner",
	"social",
	"share",
	"recommended",
	"suggestion",
	"next-article",
}

// lazySrcAttrs are tried in order when an img has no usable src attribute.
var lazySrcAttrs = []string{"data-src", "data-original-src", "data-lazy-src"}
