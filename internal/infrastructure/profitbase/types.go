package profitbase

type authRequest struct {
	Type        string          `json:"type"`
	Credentials authCredentials `json:"credentials"`
}

type authCredentials struct {
	APIKey string `json:"pb_api_key"`
}

type authResponse struct {
	AccessToken   string `json:"access_token"`
	RemainingTime int64  `json:"remaining_time"`
}

type dealResponse struct {
	Status string       `json:"status"`
	Data   []dealDetail `json:"data"`
}

type dealDetail struct {
	Number       flexString     `json:"number"`
	PropertyType string         `json:"propertyType"`
	HouseName    string         `json:"houseName"`
	Attributes   dealAttributes `json:"attributes"`
	SoldAt       *string        `json:"soldAt"`
	BookedAt     *string        `json:"bookedAt"`
}

type dealAttributes struct {
	Facing *string `json:"facing"`
}

// flexString принимает и строку, и число: номер объекта в разных аккаунтах
// приходит по-разному.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}

	if string(data) == "null" {
		*s = ""
		return nil
	}

	*s = flexString(data)
	return nil
}
