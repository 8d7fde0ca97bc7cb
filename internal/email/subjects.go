package email

const (
	subjectIdentityLinkConflictFmt = "[HR] Identity link conflict for employee %d"
	subjectPublicationPendingFmt   = "[HR] Identity event pending for employee %d"
	subjectPublicationAbandonedFmt = "[HR] Identity event abandoned for employee %d"
)
