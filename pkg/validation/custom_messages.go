package validation

// CustomMessage returns per-tag overrides for a JSON field, or nil
func CustomMessage(field string) map[string]string {
	var customValidationMessages = map[string]map[string]string{
		"email": {
			"required": "email must not be empty",
			"email":    "email is not a valid address",
		},
		"password": {
			"required": "password must not be empty",
			"min":      "password must be at least 6 characters",
			"max":      "password must be at most 128 characters",
		},
		"new_password": {
			"required": "new_password must not be empty",
			"min":      "new_password must be at least 6 characters",
			"max":      "new_password must be at most 128 characters",
		},
		"site_url": {
			"url": "site_url must be an absolute URL",
		},
		"completedAt": {
			"required": "completedAt must be an ISO 8601 timestamp",
		},
	}
	return customValidationMessages[field]
}
