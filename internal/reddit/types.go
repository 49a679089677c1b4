package reddit

import "encoding/json"

// listing is the envelope Reddit wraps collections in.
type listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []thing `json:"children"`
		After    string  `json:"after"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// post is the subset of a t3 (link) object used for image discovery.
type post struct {
	ID            string                   `json:"id"`
	Title         string                   `json:"title"`
	Permalink     string                   `json:"permalink"`
	URL           string                   `json:"url"`
	CreatedUTC    float64                  `json:"created_utc"`
	IsGallery     bool                     `json:"is_gallery"`
	MediaMetadata map[string]mediaMetadata `json:"media_metadata"`
	GalleryData   *galleryData             `json:"gallery_data"`
	Preview       *preview                 `json:"preview"`
}

type mediaMetadata struct {
	Status string        `json:"status"`
	S      *mediaSource  `json:"s"`
	P      []mediaSource `json:"p"`
}

type mediaSource struct {
	U string `json:"u"`
}

type galleryData struct {
	Items []struct {
		MediaID string `json:"media_id"`
	} `json:"items"`
}

type preview struct {
	Images []struct {
		Source struct {
			URL string `json:"url"`
		} `json:"source"`
	} `json:"images"`
}

// tokenResponse is the application-only OAuth response. Fields are unexported
// with a custom decoder so the token never ends up in a tagged struct field.
type tokenResponse struct {
	token     string
	expiresIn int
}

func (t *tokenResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	_ = json.Unmarshal(raw["access_token"], &t.token)
	_ = json.Unmarshal(raw["expires_in"], &t.expiresIn)
	return nil
}
