// env2badger moves API credentials from a .env file into the encrypted
// badger secret store, so production configs never carry them in plain
// text. The query binaries read the store through the source factory.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fillbot/gofill/pkg/secretstore"
)

// credentialKeys maps .env names to their store keys. Only listed keys
// are imported.
var credentialKeys = map[string]string{
	"FILLS_API_KEY": secretstore.WellKnownAPIKey,
}

func main() {
	var (
		inPath    = flag.String("in", ".env", "input .env file path")
		dbPath    = flag.String("badger", getenv("SECRETS_DB_PATH", "data/secrets.badger"), "badger secrets db path")
		secretKey = flag.String("secret-key", getenv("SECRETS_ENCRYPTION_KEY", ""), "badger encryption key (32 bytes base64/hex)")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	if keyBytes == nil {
		fatal(fmt.Errorf("secret key is required: set SECRETS_ENCRYPTION_KEY or pass -secret-key"))
	}

	kv, err := parseDotEnvFile(*inPath)
	if err != nil {
		fatal(err)
	}

	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
		ReadOnly:      false,
	})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	written := 0
	for envName, storeKey := range credentialKeys {
		v, ok := kv[envName]
		if !ok {
			continue
		}
		if err := ss.SetString(storeKey, v); err != nil {
			fatal(err)
		}
		written++
		fmt.Fprintf(os.Stderr, "imported %s as %s\n", envName, storeKey)
	}

	if written == 0 {
		fatal(fmt.Errorf("%s carries none of the known credential keys", *inPath))
	}
	fmt.Fprintf(os.Stderr, "imported %d credential(s) into %s\n", written, *dbPath)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}

func parseDotEnvFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, line := range strings.Split(string(b), "\n") {
		l := strings.TrimSpace(strings.TrimRight(line, "\r"))
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		if !strings.Contains(l, "=") {
			continue
		}
		parts := strings.SplitN(l, "=", 2)
		k := strings.TrimSpace(parts[0])
		v := strings.TrimSpace(parts[1])
		if k == "" {
			continue
		}
		// strip optional quotes
		if len(v) >= 2 && ((v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'')) {
			v = v[1 : len(v)-1]
		}
		out[k] = v
	}
	return out, nil
}
