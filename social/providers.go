package social

import (
	"encoding/json"
	"strconv"
)

const (
	ProviderGoogle = "google"
	ProviderKakao  = "kakao"
	ProviderNaver  = "naver"
)

// Google reads the OpenID Connect user-info document.
func Google(attrs Attributes) (Identity, error) {
	return Identity{
		ProviderID: str(attrs["sub"]),
		Email:      str(attrs["email"]),
		Nickname:   str(attrs["name"]),
		ImageURL:   str(attrs["picture"]),
	}, nil
}

// Kakao reads a Kakao user-info document. The account fields are nested under
// kakao_account and its profile.
func Kakao(attrs Attributes) (Identity, error) {
	account := nested(attrs, "kakao_account")
	profile := nested(account, "profile")
	return Identity{
		ProviderID: str(attrs["id"]),
		Email:      str(account["email"]),
		Nickname:   str(profile["nickname"]),
		ImageURL:   str(profile["thumbnail_image_url"]),
	}, nil
}

// Naver reads a Naver user-info document, whose fields sit under response.
func Naver(attrs Attributes) (Identity, error) {
	resp := nested(attrs, "response")
	return Identity{
		ProviderID: str(resp["id"]),
		Email:      str(resp["email"]),
		Nickname:   str(resp["nickname"]),
		ImageURL:   str(resp["profile_image"]),
	}, nil
}

func nested(attrs Attributes, key string) Attributes {
	if attrs == nil {
		return nil
	}
	switch v := attrs[key].(type) {
	case map[string]any:
		return v
	case Attributes:
		return v
	}
	return nil
}

// str renders scalar attribute values. Numeric ids (Kakao) arrive as
// json.Number or float64 depending on how the document was decoded.
func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}
