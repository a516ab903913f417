package email

import (
	"fmt"
	"html"
	"strconv"
)

// HourVerification carries what a verifier needs to confirm a logged activity.
type HourVerification struct {
	ContactEmail  string
	ContactName   string
	StudentName   string
	CommunityName string
	ActivityName  string
	ActivityDate  string
	Hours         float64
	ReviewURL     string
}

// HourReview tells a student the outcome of a verification request.
type HourReview struct {
	StudentEmail  string
	StudentName   string
	CommunityName string
	ActivityName  string
	Hours         float64
	Approved      bool
	Note          string
}

// OpportunitySubmitted describes a newly created opportunity.
type OpportunitySubmitted struct {
	To          string
	Name        string
	Date        string
	Time        string
	Description string
	Creator     bool
}

// FormatHours renders 2.5 as "2.5" and 3 as "3".
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// HourVerificationMessage builds the "{student} Requests Verification of Hours" email.
func HourVerificationMessage(v HourVerification) Message {
	hours := FormatHours(v.Hours)
	greeting := "Hello"
	if v.ContactName != "" {
		greeting = "Hello " + v.ContactName
	}

	text := fmt.Sprintf("%s,\n\n%s has logged %s hours for %q in the community %q on %s and requests your verification.",
		greeting, v.StudentName, hours, v.ActivityName, v.CommunityName, v.ActivityDate)
	body := fmt.Sprintf(`<p>%s,</p><p>%s has logged <strong>%s</strong> hours for <em>%s</em> in the community <em>"%s"</em> on %s and requests your verification.</p>`,
		html.EscapeString(greeting), html.EscapeString(v.StudentName), hours,
		html.EscapeString(v.ActivityName), html.EscapeString(v.CommunityName), html.EscapeString(v.ActivityDate))

	if v.ReviewURL != "" {
		text += "\n\nPlease verify the hours by following the link below:\n" + v.ReviewURL
		body += fmt.Sprintf(`<p>Please verify the hours by following the link below:</p><p><a href="%s">Verify Hours</a></p>`, html.EscapeString(v.ReviewURL))
	}

	return Message{
		To:      v.ContactEmail,
		Subject: fmt.Sprintf("%s Requests Verification of Hours", v.StudentName),
		Text:    text,
		HTML:    body,
	}
}

// HourReviewMessage builds the approval or rejection notice sent to the student.
func HourReviewMessage(r HourReview) Message {
	outcome := "rejected"
	if r.Approved {
		outcome = "approved"
	}
	text := fmt.Sprintf("Hello %s,\n\nYour %s hours for %q in %q were %s.",
		r.StudentName, FormatHours(r.Hours), r.ActivityName, r.CommunityName, outcome)
	if r.Note != "" {
		text += "\n\nNote from your teacher: " + r.Note
	}
	return Message{
		To:      r.StudentEmail,
		Subject: fmt.Sprintf("Your hours for %s were %s", r.ActivityName, outcome),
		Text:    text,
	}
}

// OpportunitySubmittedMessage builds the contact or creator notice for a new opportunity.
func OpportunitySubmittedMessage(o OpportunitySubmitted) Message {
	details := fmt.Sprintf("\nActivity Name: %s\nDate: %s\nTime: %s\nDescription: %s", o.Name, o.Date, o.Time, o.Description)
	if o.Creator {
		return Message{
			To:      o.To,
			Subject: "Your Opportunity Was Submitted Successfully",
			Text:    "Your opportunity has been published.\n" + details,
		}
	}
	return Message{
		To:      o.To,
		Subject: "Opportunity Submitted - Verification Needed",
		Text:    "A new opportunity lists you as its contact. Please verify the details:\n" + details,
	}
}
