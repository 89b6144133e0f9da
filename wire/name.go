package wire

// ValidateName checks a tube name against the protocol rules:
// 1-200 bytes of letters, digits and "+/;.$()_-", not starting with '-'.
func ValidateName(name string) error {
	if len(name) < MinNameLength {
		return &InvalidNameError{Name: name, Message: "name is empty"}
	}

	if len(name) > MaxNameLength {
		return &InvalidNameError{Name: name, Message: "name exceeds maximum length of 200 bytes"}
	}

	if name[0] == '-' {
		return &InvalidNameError{Name: name, Message: "name starts with a hyphen"}
	}

	for i := 0; i < len(name); i++ {
		if !isNameByte(name[i]) {
			return &InvalidNameError{Name: name, Message: "name contains an invalid character"}
		}
	}

	return nil
}

func isNameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '+', '/', ';', '.', '$', '(', ')', '_', '-':
		return true
	}
	return false
}
