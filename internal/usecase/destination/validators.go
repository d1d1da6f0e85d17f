package destination

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/google/uuid"
)

var (
	digitsPattern  = regexp.MustCompile(`^\d+$`)
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	brPhonePattern = regexp.MustCompile(`^\+55\d{10,11}$`)
	rfcPattern     = regexp.MustCompile(`^[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}$`)
	bicPattern     = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
	ibanPattern    = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{10,30}$`)
	evmPattern     = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

func required(dest *domain.Destination, field string) (string, error) {
	v := strings.TrimSpace(dest.Details[field])
	if v == "" {
		return "", domain.Validationf("%s is required", field)
	}
	return v, nil
}

func ValidatePix(dest *domain.Destination) error {
	key, err := required(dest, "pix_key")
	if err != nil {
		return err
	}
	keyType, err := required(dest, "pix_key_type")
	if err != nil {
		return err
	}
	switch keyType {
	case "cpf":
		if !validCPF(key) {
			return domain.Validationf("invalid CPF pix key")
		}
	case "cnpj":
		if !validCNPJ(key) {
			return domain.Validationf("invalid CNPJ pix key")
		}
	case "email":
		if !emailPattern.MatchString(key) {
			return domain.Validationf("invalid email pix key")
		}
	case "phone":
		if !brPhonePattern.MatchString(key) {
			return domain.Validationf("phone pix key must be +55 followed by 10 or 11 digits")
		}
	case "evp":
		if _, err := uuid.Parse(key); err != nil {
			return domain.Validationf("random (evp) pix key must be a UUID")
		}
	default:
		return domain.Validationf("unknown pix_key_type %q", keyType)
	}
	return nil
}

func ValidateSPEI(dest *domain.Destination) error {
	clabe, err := required(dest, "clabe")
	if err != nil {
		return err
	}
	if !validCLABE(clabe) {
		return domain.Validationf("invalid CLABE")
	}
	if rfc := dest.Details["rfc"]; rfc != "" && !rfcPattern.MatchString(strings.ToUpper(rfc)) {
		return domain.Validationf("invalid RFC")
	}
	return nil
}

func ValidateACH(dest *domain.Destination) error {
	routing, err := required(dest, "routing_number")
	if err != nil {
		return err
	}
	if !validABA(routing) {
		return domain.Validationf("invalid ABA routing number")
	}
	account, err := required(dest, "account_number")
	if err != nil {
		return err
	}
	if !digitsPattern.MatchString(account) || len(account) < 4 || len(account) > 17 {
		return domain.Validationf("account_number must be 4-17 digits")
	}
	switch dest.Details["account_type"] {
	case "", "checking", "savings":
	default:
		return domain.Validationf("account_type must be checking or savings")
	}
	return nil
}

func ValidateWire(dest *domain.Destination) error {
	bic, err := required(dest, "swift_bic")
	if err != nil {
		return err
	}
	if !bicPattern.MatchString(strings.ToUpper(bic)) {
		return domain.Validationf("invalid SWIFT/BIC")
	}
	if iban := strings.ReplaceAll(strings.ToUpper(dest.Details["iban"]), " ", ""); iban != "" {
		if !validIBAN(iban) {
			return domain.Validationf("invalid IBAN")
		}
		return nil
	}
	if _, err := required(dest, "account_number"); err != nil {
		return domain.Validationf("wire destination requires iban or account_number")
	}
	return nil
}

func ValidateUSDC(dest *domain.Destination) error {
	addr, err := required(dest, "address")
	if err != nil {
		return err
	}
	if !evmPattern.MatchString(addr) {
		return domain.Validationf("address must be 0x followed by 40 hex characters")
	}
	return nil
}

func digits(s string) []int {
	out := make([]int, len(s))
	for i, c := range s {
		out[i] = int(c - '0')
	}
	return out
}

func allSame(d []int) bool {
	for _, v := range d[1:] {
		if v != d[0] {
			return false
		}
	}
	return true
}

func validCPF(s string) bool {
	s = strings.NewReplacer(".", "", "-", "").Replace(s)
	if len(s) != 11 || !digitsPattern.MatchString(s) {
		return false
	}
	d := digits(s)
	if allSame(d) {
		return false
	}
	for _, n := range []int{9, 10} {
		sum := 0
		for i := 0; i < n; i++ {
			sum += d[i] * (n + 1 - i)
		}
		if sum*10%11%10 != d[n] {
			return false
		}
	}
	return true
}

func validCNPJ(s string) bool {
	s = strings.NewReplacer(".", "", "-", "", "/", "").Replace(s)
	if len(s) != 14 || !digitsPattern.MatchString(s) {
		return false
	}
	d := digits(s)
	if allSame(d) {
		return false
	}
	w1 := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	w2 := append([]int{6}, w1...)
	for n, w := range map[int][]int{12: w1, 13: w2} {
		sum := 0
		for i, weight := range w {
			sum += d[i] * weight
		}
		check := 0
		if r := sum % 11; r >= 2 {
			check = 11 - r
		}
		if check != d[n] {
			return false
		}
	}
	return true
}

// validCLABE checks the 18th digit with the 3-7-1 weighted mod-10 scheme.
func validCLABE(s string) bool {
	if len(s) != 18 || !digitsPattern.MatchString(s) {
		return false
	}
	d := digits(s)
	weights := []int{3, 7, 1}
	sum := 0
	for i := 0; i < 17; i++ {
		sum += d[i] * weights[i%3] % 10
	}
	return (10-sum%10)%10 == d[17]
}

func validABA(s string) bool {
	if len(s) != 9 || !digitsPattern.MatchString(s) {
		return false
	}
	d := digits(s)
	sum := 3*(d[0]+d[3]+d[6]) + 7*(d[1]+d[4]+d[7]) + (d[2] + d[5] + d[8])
	return sum%10 == 0
}

func validIBAN(s string) bool {
	if !ibanPattern.MatchString(s) {
		return false
	}
	rearranged := s[4:] + s[:4]
	var sb strings.Builder
	for _, c := range rearranged {
		if c >= 'A' && c <= 'Z' {
			sb.WriteString(big.NewInt(int64(c-'A'+10)).String())
		} else {
			sb.WriteRune(c)
		}
	}
	n, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}
