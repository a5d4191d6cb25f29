package core

// ApplyScan counts one scanned message. Total functions: ApplyScan and
// ApplySuccess never fail on a well-formed receiver.
func (s *UserStats) ApplyScan() {
	s.TotalScanned++
}

// ApplySuccess counts one successful unsubscribe event and attributes it
// to the sender's domain. The domain's email set is idempotent with
// respect to repeated sender emails; the counters are not — callers must
// invoke this at most once per genuinely new unsubscribe event.
func (s *UserStats) ApplySuccess(domain, senderName, senderEmail string) {
	s.TotalUnsubscribed++
	s.TimeSaved = s.TotalUnsubscribed * MinutesSavedPerUnsubscribe

	if domain == "" || domain == "unknown" {
		return
	}
	if s.Domains == nil {
		s.Domains = make(map[string]*DomainStat)
	}
	stat, ok := s.Domains[domain]
	if !ok {
		name := senderName
		if name == "" {
			name = domain
		}
		stat = NewDomainStat(name)
		s.Domains[domain] = stat
	}
	stat.Count++
	stat.AddEmail(senderEmail)
}
