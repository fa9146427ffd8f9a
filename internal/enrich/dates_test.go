package enrich

import (
	"reflect"
	"testing"
)

func TestExtractDates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"day first",
			"The event occurred on 28 August 1929 in the city.",
			[]string{"1929-08-28"},
		},
		{
			"month first",
			"Dated August 28, 1929 at the registry.",
			[]string{"1929-08-28"},
		},
		{
			"both forms deduplicate",
			"On 28 August 1929, later recorded as August 28, 1929.",
			[]string{"1929-08-28"},
		},
		{
			"bare year is not a date",
			"Production peaked in 1929 overall.",
			nil,
		},
		{
			"unknown month word",
			"Shipment 12 crates 1930 arrived.",
			nil,
		},
		{
			"impossible day rejected",
			"Filed 31 February 1930 by mistake.",
			nil,
		},
		{
			"multiple dates sorted",
			"From 3 March 1931 back to 28 August 1929.",
			[]string{"1929-08-28", "1931-03-03"},
		},
		{
			"abbreviated month",
			"Noted on 5 Sept 1940 in the ledger.",
			[]string{"1940-09-05"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDates(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractDates(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
