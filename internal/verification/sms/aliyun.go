package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dysmsapi "github.com/alibabacloud-go/dysmsapi-20170525/v4/client"
	"github.com/alibabacloud-go/tea/tea"
)

// DefaultAliyunEndpoint is the Dysmsapi endpoint used when none is configured.
const DefaultAliyunEndpoint = "dysmsapi.aliyuncs.com"

// smsAPI is the part of the Dysmsapi client AliyunClient calls.
type smsAPI interface {
	SendSms(request *dysmsapi.SendSmsRequest) (*dysmsapi.SendSmsResponse, error)
}

// AliyunClient sends template SMS through Alibaba Cloud Dysmsapi.
type AliyunClient struct {
	api      smsAPI
	signName string
}

// NewAliyunClient returns a Dysmsapi-backed sender. endpoint defaults to DefaultAliyunEndpoint.
func NewAliyunClient(endpoint, accessKeyID, accessKeySecret, signName string) (*AliyunClient, error) {
	if accessKeyID == "" || accessKeySecret == "" {
		return nil, errors.New("sms: access key not configured")
	}
	if endpoint == "" {
		endpoint = DefaultAliyunEndpoint
	}
	timeoutMs := int(defaultTimeout.Milliseconds())
	api, err := dysmsapi.NewClient(&openapi.Config{
		AccessKeyId:     tea.String(accessKeyID),
		AccessKeySecret: tea.String(accessKeySecret),
		Endpoint:        tea.String(endpoint),
		ConnectTimeout:  tea.Int(timeoutMs),
		ReadTimeout:     tea.Int(timeoutMs),
	})
	if err != nil {
		return nil, fmt.Errorf("sms: dysmsapi client: %w", err)
	}
	return &AliyunClient{api: api, signName: signName}, nil
}

// Send delivers msg with its template, passing the code as the "code" template parameter.
// The SDK call is not cancellable; ctx is only checked before sending.
func (c *AliyunClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.TemplateID == "" {
		return fmt.Errorf("sms: no template for purpose %q", msg.Purpose)
	}
	param, err := json.Marshal(map[string]string{"code": msg.Code})
	if err != nil {
		return err
	}
	resp, err := c.api.SendSms(&dysmsapi.SendSmsRequest{
		PhoneNumbers:  tea.String(msg.Phone),
		SignName:      tea.String(c.signName),
		TemplateCode:  tea.String(msg.TemplateID),
		TemplateParam: tea.String(string(param)),
	})
	if err != nil {
		return fmt.Errorf("sms: send: %w", err)
	}
	if resp == nil || resp.Body == nil {
		return errors.New("sms: empty response")
	}
	if code := tea.StringValue(resp.Body.Code); code != "OK" {
		return fmt.Errorf("sms: gateway rejected message code=%s message=%s", code, tea.StringValue(resp.Body.Message))
	}
	return nil
}
