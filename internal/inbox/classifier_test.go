package inbox

import "testing"

func TestExtractAddress(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`"Jane Doe" <Jane@Example.com>`, "jane@example.com"},
		{"Jane Doe <jane@example.com>", "jane@example.com"},
		{"JOHN@x.org", "john@x.org"},
		{"reply from bob@corp.io today", "bob@corp.io"},
		{"Broken, Name <odd@x.com>", "odd@x.com"},
		{"", ""},
		{"no address here", ""},
	}
	for _, tc := range cases {
		if got := ExtractAddress(tc.in); got != tc.want {
			t.Errorf("ExtractAddress(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassification(t *testing.T) {
	cases := []struct {
		name                string
		e                   Email
		auto, bounce, legit bool
	}{
		{"plain reply", Email{From: "jane@x.com", Subject: "Re: Quick intro", Body: "Sure, call me Tuesday."}, false, false, true},
		{"out of office subject", Email{From: "jane@x.com", Subject: "Automatic reply: Quick intro"}, true, false, false},
		{"vacation body", Email{From: "jane@x.com", Subject: "Re: hi", Body: "I am on VACATION until Monday"}, true, false, false},
		{"mailer daemon", Email{From: "MAILER-DAEMON@mx.google.com", Subject: "Returned"}, false, true, false},
		{"undeliverable subject", Email{From: "postbox@x.com", Subject: "Undeliverable: Quick intro"}, false, true, false},
		{"dsn is both", Email{From: "postmaster@x.com", Subject: "Delivery Status Notification (Failure)"}, true, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAutoReply(tc.e); got != tc.auto {
				t.Errorf("IsAutoReply = %v; want %v", got, tc.auto)
			}
			if got := IsBounce(tc.e); got != tc.bounce {
				t.Errorf("IsBounce = %v; want %v", got, tc.bounce)
			}
			if got := IsLegitimateReply(tc.e); got != tc.legit {
				t.Errorf("IsLegitimateReply = %v; want %v", got, tc.legit)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	in := "<div>Hi&nbsp;there,</div>\n\n<p>Tom &amp; Jerry &lt;3</p>"
	if got, want := PlainText(in), "Hi there, Tom & Jerry <3"; got != want {
		t.Fatalf("PlainText = %q; want %q", got, want)
	}
	if PlainText("") != "" {
		t.Fatal("empty body must stay empty")
	}
}
