package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDrive(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"FWD":      "2WD",
		"fwd":      "2WD",
		"4x4":      "4WD",
		"4х4":      "4WD",
		"полный":   "4WD",
		"Задний":   "RWD",
		"awd.":     "AWD",
		"cvt":      "CVT",
		"":         "",
		"  (FF) ":  "2WD",
		"передний": "2WD",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeDrive(in), "input %q", in)
	}
}

func TestNormalizeDriveIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"2WD", "4WD", "AWD", "RWD", "HYBRID-E"} {
		once := NormalizeDrive(code)
		require.Equal(t, code, once)
		require.Equal(t, once, NormalizeDrive(once))
	}
}

func TestCountryCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, "JP", CountryCode("Япония 🇯🇵"))
	require.Equal(t, "KR", CountryCode("Южная Корея"))
	require.Equal(t, "CN", CountryCode("🇨🇳"))
	require.Equal(t, "AE", CountryCode("ОАЭ, Дубай"))
	require.Empty(t, CountryCode("Германия"))
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"25000":       "25 000",
		"25.000":      "25 000",
		"2,890,000":   "2 890 000",
		"2 890 000":   "2 890 000",
		"2 100":     "2 100",
		"999":         "999",
		"000":         "0",
		"007":         "7",
		"":            "",
		"нет":         "",
		"1234567890":  "1 234 567 890",
	}
	for in, want := range cases {
		require.Equal(t, want, FormatNumber(in), "input %q", in)
	}
}

func TestMileageAndIsNew(t *testing.T) {
	t.Parallel()

	require.Equal(t, "25 000 км.", FormatMileage("25.000"))
	require.Equal(t, "0 км.", FormatMileage("0"))
	require.Empty(t, FormatMileage("новый"))

	require.True(t, IsNewMileage(FormatMileage("0")))
	require.True(t, IsNewMileage(FormatMileage("00 000")))
	require.True(t, IsNewMileage(""))
	require.False(t, IsNewMileage(FormatMileage("15")))
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2 890 000 ₽", FormatPrice("2890000"))
	require.Empty(t, FormatPrice(""))
}

func TestFormatPeriod(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2021 / 03", FormatPeriod("2021", "3"))
	require.Equal(t, "2021 / 11", FormatPeriod("2021", "11"))
	require.Equal(t, "2021", FormatPeriod("2021", "13"))
	require.Equal(t, "2021", FormatPeriod("2021", ""))
	require.Empty(t, FormatPeriod("", "5"))
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	require.Equal(t, "TOYOTA CAMRY", cleanTitle(" TOYOTA  CAMRY 🇯🇵 "))
	require.Equal(t, "Honda Fit", cleanTitle("Honda Fit #вналичии -"))
}

func TestScaleAmount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		integer, fraction, magnitude, want string
	}{
		{"2 890 000", "", "", "2890000"},
		{"15", "5", "", "15"},
		{"1", "5", "млн", "1500000"},
		{"2", "89", "МЛН", "2890000"},
		{"25", "", "тыс", "25000"},
		{"1 500", "", "тыс", "1500000"},
		{"3", "", "млрд", "3000000000"},
		{"", "5", "млн", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ScaleAmount(tc.integer, tc.fraction, tc.magnitude), "%+v", tc)
	}
}

func TestForeignCurrency(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"вон", "в Корее, вон", ": $", "USD", "иен", "юаней", "€"} {
		require.True(t, ForeignCurrency(s), s)
	}
	for _, s := range []string{"", "₽", "руб.", "под ключ до Москвы", "в Корее:"} {
		require.False(t, ForeignCurrency(s), s)
	}
}
