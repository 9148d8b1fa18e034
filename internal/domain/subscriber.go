package domain

import "time"

// UnknownLandingPage is stored when a submission arrives without a Referer.
const UnknownLandingPage = "unknown"

// Subscriber is one accepted landing-page signup.
type Subscriber struct {
	ID             string    `json:"id" db:"id" dynamodbav:"id"`
	Name           string    `json:"name" db:"name" dynamodbav:"name"`
	Email          string    `json:"email" db:"email" dynamodbav:"email"`
	LandingPageURL string    `json:"landingPageUrl" db:"landing_page_url" dynamodbav:"landingPageUrl"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at" dynamodbav:"createdAt"`
}

// LandingPageOrUnknown returns referer, or UnknownLandingPage when it is empty.
func LandingPageOrUnknown(referer string) string {
	if referer == "" {
		return UnknownLandingPage
	}
	return referer
}
