package domain

import "time"

type ContentType string

const (
	ContentTypeTweetThread       ContentType = "tweet_thread"
	ContentTypeLinkedInArticle   ContentType = "linkedin_article"
	ContentTypeBlogPost          ContentType = "blog_post"
	ContentTypeVideoScript       ContentType = "video_script"
	ContentTypeInfographic       ContentType = "infographic"
	ContentTypeNewsletter        ContentType = "newsletter"
	ContentTypeInstagramCarousel ContentType = "instagram_carousel"
)

// ContentTypes lists every producible format in a stable order.
var ContentTypes = []ContentType{
	ContentTypeTweetThread,
	ContentTypeLinkedInArticle,
	ContentTypeBlogPost,
	ContentTypeVideoScript,
	ContentTypeInfographic,
	ContentTypeNewsletter,
	ContentTypeInstagramCarousel,
}

func (t ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ContentTypeMeta carries the static heuristics used when scoring a format
// against a company and channel: word-length envelope, production complexity
// and how visual the format is.
type ContentTypeMeta struct {
	IdealLength  int
	MaxLength    int
	Complexity   float64
	VisualWeight string // "low", "medium" or "high"
	Channels     []Channel
}

var contentTypeMeta = map[ContentType]ContentTypeMeta{
	ContentTypeTweetThread: {
		IdealLength: 400, MaxLength: 900, Complexity: 0.2,
		VisualWeight: "low", Channels: []Channel{ChannelTwitter},
	},
	ContentTypeLinkedInArticle: {
		IdealLength: 1200, MaxLength: 3000, Complexity: 0.5,
		VisualWeight: "medium", Channels: []Channel{ChannelLinkedIn},
	},
	ContentTypeBlogPost: {
		IdealLength: 1500, MaxLength: 4000, Complexity: 0.6,
		VisualWeight: "medium", Channels: []Channel{ChannelLinkedIn, ChannelNewsletter},
	},
	ContentTypeVideoScript: {
		IdealLength: 600, MaxLength: 1500, Complexity: 0.9,
		VisualWeight: "high", Channels: []Channel{ChannelInstagram, ChannelTwitter},
	},
	ContentTypeInfographic: {
		IdealLength: 200, MaxLength: 500, Complexity: 0.7,
		VisualWeight: "high", Channels: []Channel{ChannelInstagram, ChannelLinkedIn},
	},
	ContentTypeNewsletter: {
		IdealLength: 800, MaxLength: 2000, Complexity: 0.4,
		VisualWeight: "low", Channels: []Channel{ChannelNewsletter},
	},
	ContentTypeInstagramCarousel: {
		IdealLength: 300, MaxLength: 800, Complexity: 0.8,
		VisualWeight: "high", Channels: []Channel{ChannelInstagram},
	},
}

// Meta returns the scoring heuristics for a content type. The zero value is
// returned for unknown types.
func (t ContentType) Meta() ContentTypeMeta { return contentTypeMeta[t] }

// ContentStrategy is one recommended format for a campaign, produced by the
// strategy stage. A strategy job typically emits several of these ranked by
// PriorityScore.
type ContentStrategy struct {
	ID               string
	CampaignID       string
	CompanyID        string
	ContentType      ContentType
	Reasoning        string
	TargetLength     int
	ToneDirection    string
	StructureOutline []string
	PriorityScore    float64
	VisualNeeded     bool
	CreatedAt        time.Time
}

type PieceStatus string

const (
	PieceStatusDraft     PieceStatus = "draft"
	PieceStatusReview    PieceStatus = "review"
	PieceStatusApproved  PieceStatus = "approved"
	PieceStatusPublished PieceStatus = "published"
)

// CanTransition enforces the forward-only piece lifecycle
// draft -> review -> approved -> published.
func (s PieceStatus) CanTransition(to PieceStatus) bool {
	order := map[PieceStatus]int{
		PieceStatusDraft:     0,
		PieceStatusReview:    1,
		PieceStatusApproved:  2,
		PieceStatusPublished: 3,
	}
	from, okFrom := order[s]
	next, okTo := order[to]
	return okFrom && okTo && next == from+1
}

// ContentPiece is a fully drafted asset produced from a strategy.
type ContentPiece struct {
	ID             string
	StrategyID     string
	CampaignID     string
	CompanyID      string
	ContentType    ContentType
	Title          string
	Body           string
	Summary        string
	WordCount      int
	VisualPrompt   string
	VisualAssetURL string
	QualityScore   float64
	BrandAlignment float64
	Status         PieceStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
