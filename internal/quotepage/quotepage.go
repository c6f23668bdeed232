// Package quotepage describes the observable surface of the insurance quote page:
// its element ids and the fixed order the form is filled in.
package quotepage

const (
	FirstNameID  = "firstName"
	LastNameID   = "lastName"
	AddressID    = "address"
	CityID       = "city"
	PostalCodeID = "postalCode"
	PhoneID      = "phone"
	EmailID      = "email"
	AgeID        = "age"
	ExperienceID = "experience"
	AccidentsID  = "accidents"

	SubmitID = "btnSubmit"
	ResultID = "finalQuote"
)

// DefaultPath is where the quote page is served on its host.
const DefaultPath = "/prog8170a04/getQuote.html"

// FieldOrder is the order the form is filled in.
var FieldOrder = []string{
	FirstNameID,
	LastNameID,
	AddressID,
	CityID,
	PostalCodeID,
	PhoneID,
	EmailID,
	AgeID,
	ExperienceID,
	AccidentsID,
}

// IsField reports whether id names one of the form's input fields.
func IsField(id string) bool {
	for _, f := range FieldOrder {
		if f == id {
			return true
		}
	}
	return false
}
