package tags

// Rating is a content rating class
type Rating string

const (
	RatingGeneral      Rating = "general"
	RatingSensitive    Rating = "sensitive"
	RatingQuestionable Rating = "questionable"
	RatingExplicit     Rating = "explicit"

	// RatingAuto asks the caller to estimate the rating from the input tags.
	// It is never a valid lookup key.
	RatingAuto Rating = "auto"
)

// Ratings lists the concrete ratings in severity order
var Ratings = []Rating{RatingGeneral, RatingSensitive, RatingQuestionable, RatingExplicit}

var (
	explicitTags     = map[string]bool{"explicit": true}
	questionableTags = map[string]bool{"nsfw": true, "questionable": true}
	sensitiveTags    = map[string]bool{"sensitive": true}
)

// Severity orders ratings for display. It plays no part in estimation.
func (r Rating) Severity() int {
	switch r {
	case RatingSensitive:
		return 1
	case RatingQuestionable:
		return 2
	case RatingExplicit:
		return 3
	default:
		return 0
	}
}

func (r Rating) String() string { return string(r) }

// EstimateRating walks tags in order and returns the rating of the first tag
// that names one. Each tag is checked against explicit, then questionable,
// then sensitive markers. A list with no marker is general.
func EstimateRating(tags []string) Rating {
	for _, tag := range tags {
		switch {
		case explicitTags[tag]:
			return RatingExplicit
		case questionableTags[tag]:
			return RatingQuestionable
		case sensitiveTags[tag]:
			return RatingSensitive
		}
	}
	return RatingGeneral
}
