package models

import "time"

// UserProfile is the local view of a signed-in user, stored under "users/{uid}".
type UserProfile struct {
	UID           string   `firestore:"uid" json:"uid"`
	DisplayName   string   `firestore:"displayName" json:"displayName"`
	Email         string   `firestore:"email" json:"email"`
	PhotoURL      string   `firestore:"photoURL" json:"photoURL"`
	SavedProducts []string `firestore:"savedProducts" json:"savedProducts"`
}

// Comment is immutable once created.
type Comment struct {
	ID        string `firestore:"-" json:"id"`
	ProductID string `firestore:"productId" json:"productId"`
	UserID    string `firestore:"userId" json:"userId"`
	UserName  string `firestore:"userName" json:"userName"`
	UserPhoto string `firestore:"userPhoto" json:"userPhoto"`
	Text      string `firestore:"text" json:"text" validate:"required,max=1000"`
	Timestamp int64  `firestore:"timestamp" json:"timestamp"`
}

// Lead is an email captured for marketing follow-up. Write-only from the public side.
type Lead struct {
	ID           string `firestore:"-" json:"id"`
	Email        string `firestore:"email" json:"email" validate:"required,email"`
	ProductID    string `firestore:"productId" json:"productId" validate:"required"`
	ProductTitle string `firestore:"productTitle" json:"productTitle"`
	Timestamp    int64  `firestore:"timestamp" json:"timestamp"`
}

// NotificationItem lives only in memory and is lost on restart.
type NotificationItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	URL       string    `json:"url,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// BlogPost is an editorial post with an affiliate link.
type BlogPost struct {
	ID           string   `firestore:"-" json:"id"`
	Title        string   `firestore:"title" json:"title"`
	Excerpt      string   `firestore:"excerpt" json:"excerpt"`
	Content      string   `firestore:"content" json:"content"`
	ImageURL     string   `firestore:"imageUrl" json:"imageUrl"`
	AffiliateURL string   `firestore:"affiliateUrl" json:"affiliateUrl"`
	Tags         []string `firestore:"tags" json:"tags"`
	PublishedAt  int64    `firestore:"publishedAt" json:"publishedAt"`
	Views        int      `firestore:"views" json:"views"`
}

// SiteVisit is appended once per visitor session.
type SiteVisit struct {
	Timestamp int64  `firestore:"timestamp"`
	Date      string `firestore:"date"`
}

// Analytics is the curator dashboard summary.
type Analytics struct {
	TotalVisits       int       `json:"totalVisits"`
	TotalClicks       int       `json:"totalClicks"`
	NotificationsSent int       `json:"notificationsSent"`
	LeadsCaptured     int       `json:"leadsCaptured"`
	ConversionPercent float64   `json:"conversionPercent"`
	Leads             []Lead    `json:"leads"`
	TopProducts       []Product `json:"topProducts"`
}
