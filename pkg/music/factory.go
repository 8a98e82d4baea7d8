package music

import (
	"fmt"
	"log"

	"github.com/SebastianCl/letra-cancion/pkg/lrclib"
	"github.com/SebastianCl/letra-cancion/pkg/netease"
)

// CreateProvider builds one lyric source client.
func CreateProvider(provider Provider) (LyricsAPI, error) {
	switch provider {
	case ProviderLRCLib:
		log.Printf("INFO: Creating LRCLib client")
		return lrclib.NewClient(), nil
	case ProviderNetEase:
		log.Printf("INFO: Creating NetEase music client")
		return netease.NewClient(), nil
	default:
		return nil, fmt.Errorf("unknown lyric provider: %s", provider)
	}
}

// CreateDefaultManager chains the default sources: LRCLib first, NetEase as
// fallback.
func CreateDefaultManager() (*Manager, error) {
	var providers []LyricsAPI

	for _, providerType := range []Provider{ProviderLRCLib, ProviderNetEase} {
		provider, err := CreateProvider(providerType)
		if err != nil {
			log.Printf("WARN: Failed to create provider %s: %v", providerType, err)
			continue
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no lyric providers available")
	}
	return NewManager(providers), nil
}

// GetProviderByName maps config names to providers.
func GetProviderByName(name string) (Provider, error) {
	switch name {
	case "lrclib":
		return ProviderLRCLib, nil
	case "netease", "163":
		return ProviderNetEase, nil
	default:
		return "", fmt.Errorf("unknown provider name: %s", name)
	}
}
