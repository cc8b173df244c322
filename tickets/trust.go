package tickets

// Pseudo user names trust file entries are stored under
const (
	FingerprintUser            = "**++**"
	ReplacementFingerprintUser = "++++"
)

// TrustStore records accepted server fingerprints. It uses the ticket file
// format, with the fingerprint as the secret.
type TrustStore struct {
	store Store
}

// NewTrustStore wraps any ticket store.
func NewTrustStore(store Store) *TrustStore {
	return &TrustStore{store: store}
}

// NewTrustFileStore opens the trust file at path.
func NewTrustFileStore(path string) (*TrustStore, *FileStore) {
	fs := NewFileStore(path)
	return NewTrustStore(fs), fs
}

func trustUser(replacement bool) string {
	if replacement {
		return ReplacementFingerprintUser
	}
	return FingerprintUser
}

// Fingerprint returns the trusted fingerprint for the server, or "".
func (t *TrustStore) Fingerprint(serverAddress string, replacement bool) (string, error) {
	found, err := t.store.Get(serverAddress, trustUser(replacement))
	if err != nil || found == nil {
		return "", err
	}
	return found.Value, nil
}

// Trust records the fingerprint for the server.
func (t *TrustStore) Trust(serverAddress, fingerprint string, replacement bool) error {
	return t.store.Save(Ticket{ServerAddress: serverAddress, UserName: trustUser(replacement), Value: fingerprint})
}

// Forget removes the server's fingerprint.
func (t *TrustStore) Forget(serverAddress string, replacement bool) error {
	return t.store.Delete(serverAddress, trustUser(replacement))
}

// List returns every trust entry.
func (t *TrustStore) List() ([]Ticket, error) {
	return t.store.List()
}
