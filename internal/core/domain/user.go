package domain

import "encoding/json"

// Field names carried by every user document. Anything else in a document is an
// open profile field and round-trips through Extra.
const (
	FieldID       = "_id"
	FieldUsername = "username"
	FieldPassword = "password"
	FieldEmail    = "email"
	FieldName     = "name"
	FieldAuth     = "auth"
)

type User struct {
	ID       string         // store-assigned document id
	Username string         // unique identifier, immutable after creation
	Password string         // bcrypt hashed, never raw input
	Email    string
	Name     string
	Auth     string         // current session token, empty when logged out
	Extra    map[string]any // schemaless profile fields added via PATCH
}

func NewUser(username, hashedPassword, email, name string) *User {
	return &User{
		Username: username,
		Password: hashedPassword,
		Email:    email,
		Name:     name,
	}
}

// IsFixedField reports whether name is one of the fixed user document fields.
func IsFixedField(name string) bool {
	switch name {
	case FieldID, FieldUsername, FieldPassword, FieldEmail, FieldName, FieldAuth:
		return true
	}
	return false
}

// Document renders the user as a schemaless store document. The _id and auth
// fields are present only when set, matching how the record is persisted.
func (u User) Document() map[string]any {
	doc := map[string]any{
		FieldUsername: u.Username,
		FieldPassword: u.Password,
		FieldEmail:    u.Email,
		FieldName:     u.Name,
	}
	if u.ID != "" {
		doc[FieldID] = u.ID
	}
	if u.Auth != "" {
		doc[FieldAuth] = u.Auth
	}
	for k, v := range u.Extra {
		if !IsFixedField(k) {
			doc[k] = v
		}
	}
	return doc
}

// UserFromDocument builds a user from a store document.
func UserFromDocument(doc map[string]any) *User {
	u := &User{
		ID:       stringField(doc, FieldID),
		Username: stringField(doc, FieldUsername),
		Password: stringField(doc, FieldPassword),
		Email:    stringField(doc, FieldEmail),
		Name:     stringField(doc, FieldName),
		Auth:     stringField(doc, FieldAuth),
	}
	for k, v := range doc {
		if IsFixedField(k) {
			continue
		}
		if u.Extra == nil {
			u.Extra = make(map[string]any)
		}
		u.Extra[k] = v
	}
	return u
}

// MarshalJSON serializes the record verbatim, the way the store holds it.
func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Document())
}

func (u *User) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*u = *UserFromDocument(doc)
	return nil
}

func stringField(doc map[string]any, name string) string {
	s, _ := doc[name].(string)
	return s
}
