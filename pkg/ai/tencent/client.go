package tencent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/regions"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"

	"github.com/SebastianCl/letra-cancion/pkg/ai"
)

var _ ai.Translator = (*client)(nil)

type client struct {
	tmtClient *tmt.Client
}

func NewClient(secretID, secretKey string) (*client, error) {
	credential := common.NewCredential(secretID, secretKey)
	tmtClient, err := tmt.NewClient(credential, regions.Guangzhou, profile.NewClientProfile())
	if err != nil {
		log.Error().Err(err).Msg("new tencent tmt client error")
		return nil, err
	}
	return &client{tmtClient: tmtClient}, nil
}

func (c *client) Name() string {
	return "tencent"
}

func (c *client) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	projectID := int64(0)

	if srcLang == "" || srcLang == "auto" {
		detect := tmt.NewLanguageDetectRequest()
		detect.Text = &text
		detect.ProjectId = &projectID
		resp, err := c.tmtClient.LanguageDetectWithContext(ctx, detect)
		if err != nil {
			return "", fmt.Errorf("language detect failed: %w", err)
		}
		srcLang = *resp.Response.Lang
	}

	request := tmt.NewTextTranslateRequest()
	request.SourceText = &text
	request.Source = &srcLang
	request.Target = &tgtLang
	request.ProjectId = &projectID
	response, err := c.tmtClient.TextTranslateWithContext(ctx, request)
	if err != nil {
		log.Error().Err(err).Msg("failed to send translate request")
		return "", err
	}
	return *response.Response.TargetText, nil
}
