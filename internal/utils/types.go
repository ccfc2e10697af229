package utils

type User struct {
	ID             int64   `json:"user_id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Country        string  `json:"country"`
	PasswordDigest string  `json:"-"`
	Purpose        *string `json:"purpose,omitempty"`
}

type Document struct {
	ID       string `json:"uuid"`
	FileName string `json:"file_name"`
	Date     string `json:"date"`
	Text     string `json:"-"`
}

// DocumentInfo is the listing view of a Document, without its text.
type DocumentInfo struct {
	ID       string `json:"uuid"`
	FileName string `json:"file_name"`
	Date     string `json:"date"`
}

func (d Document) Info() DocumentInfo {
	return DocumentInfo{ID: d.ID, FileName: d.FileName, Date: d.Date}
}
