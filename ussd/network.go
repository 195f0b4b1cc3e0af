package ussd

import (
	"sort"
	"strings"
)

// NetworkCode identifies the mobile network operator of a subscriber. Values
// outside the known table are kept verbatim and report Known() == false.
type NetworkCode string

const (
	unknownNetworkName    = "Unknown Network"
	unknownNetworkCountry = "Unknown"
)

type network struct {
	name    string
	country string
}

var networks = map[NetworkCode]network{
	"62006": {"AirtelTigo Ghana", "Ghana"},
	"62002": {"Vodafone Ghana", "Ghana"},
	"62001": {"MTN Ghana", "Ghana"},
	"62120": {"Airtel Nigeria", "Nigeria"},
	"62130": {"MTN Nigeria", "Nigeria"},
	"62150": {"Glo Nigeria", "Nigeria"},
	"62160": {"Etisalat Nigeria", "Nigeria"},
	"63510": {"MTN Rwanda", "Rwanda"},
	"63513": {"Tigo Rwanda", "Rwanda"},
	"63514": {"Airtel Rwanda", "Rwanda"},
	"63601": {"EthioTelecom Ethiopia", "Ethiopia"},
	"63902": {"Safaricom Kenya", "Kenya"},
	"63903": {"Airtel Kenya", "Kenya"},
	"63907": {"Orange Kenya", "Kenya"},
	"63999": {"Equitel Kenya", "Kenya"},
	"64002": {"Tigo Tanzania", "Tanzania"},
	"64004": {"Vodacom Tanzania", "Tanzania"},
	"64005": {"Airtel Tanzania", "Tanzania"},
	"64101": {"Airtel Uganda", "Uganda"},
	"64110": {"MTN Uganda", "Uganda"},
	"64114": {"Africell Uganda", "Uganda"},
	"64501": {"Airtel Zambia", "Zambia"},
	"64502": {"MTN Zambia", "Zambia"},
	"65001": {"TNM Malawi", "Malawi"},
	"65010": {"Airtel Malawi", "Malawi"},
	"65501": {"Vodacom South Africa", "South Africa"},
	"65502": {"Telkom South Africa", "South Africa"},
	"65507": {"CellC South Africa", "South Africa"},
	"65510": {"MTN South Africa", "South Africa"},
	"99999": {"Athena (Sandbox)", "Sandbox"},
}

// FromCode resolves a raw network code. Surrounding whitespace is ignored.
func FromCode(code string) NetworkCode {
	return NetworkCode(strings.TrimSpace(code))
}

// Known reports whether the code is in the network table.
func (c NetworkCode) Known() bool {
	_, ok := networks[c]
	return ok
}

// Name returns the operator name, or "Unknown Network".
func (c NetworkCode) Name() string {
	if n, ok := networks[c]; ok {
		return n.name
	}
	return unknownNetworkName
}

// Country returns the operator's country, or "Unknown".
func (c NetworkCode) Country() string {
	if n, ok := networks[c]; ok {
		return n.country
	}
	return unknownNetworkCountry
}

// IsSandbox reports whether the code is the simulator network.
func (c NetworkCode) IsSandbox() bool {
	return c == "99999"
}

func (c NetworkCode) String() string {
	return string(c)
}

// KnownNetworks returns every code in the table, sorted.
func KnownNetworks() []NetworkCode {
	out := make([]NetworkCode, 0, len(networks))
	for code := range networks {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
