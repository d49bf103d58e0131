// Copyright 2024 the OBIS Export authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package project

import "testing"

func TestCleanText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "only_blanks", in: " \t\u00a0\uFEFF", want: ""},
		{name: "bom", in: "\uFEFFnet torn on haul-back", want: "net torn on haul-back"},
		{name: "trailing_tab", in: "juveniles only\t\r\n", want: "juveniles only"},
		{name: "nbsp", in: "\u00a0sorted on deck\u00a0", want: "sorted on deck"},
		{name: "inner_kept", in: " 2  baskets ", want: "2  baskets"},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := CleanText(tc.in); got != tc.want {
				t.Errorf("expected %q to be %q", got, tc.want)
			}
		})
	}
}

func TestCleanName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "clean", in: "Gadus morhua", want: "Gadus morhua"},
		{name: "bom", in: "\uFEFFGadus morhua", want: "Gadus morhua"},
		{name: "trailing_tab", in: "Sebastes mentella\t", want: "Sebastes mentella"},
		{name: "nbsp_between", in: "Hippoglossoides\u00a0platessoides", want: "Hippoglossoides platessoides"},
		{name: "double_space", in: "Chionoecetes  opilio ", want: "Chionoecetes opilio"},
		{name: "zero_width_tail", in: "Pandalus borealis\u200b", want: "Pandalus borealis"},
		{name: "authority", in: " Amblyraja radiata (Donovan, 1808)\u00a0", want: "Amblyraja radiata (Donovan, 1808)"},
		{name: "blank", in: "\uFEFF \t", want: ""},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := CleanName(tc.in); got != tc.want {
				t.Errorf("expected %q to be %q", got, tc.want)
			}
		})
	}
}
