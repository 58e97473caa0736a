package sms

import (
	"context"
	"encoding/json"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dypnsapi "github.com/alibabacloud-go/dypnsapi-20170525/v3/client"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
)

// AliyunSender delivers codes through Alibaba Cloud's SMS verification API.
type AliyunSender struct {
	client       *dypnsapi.Client
	signName     string
	templateCode string
}

// NewAliyunSender builds a dypnsapi client with static credentials.
// The template must declare a single "code" variable.
func NewAliyunSender(accessKeyID, accessKeySecret, signName, templateCode string) (*AliyunSender, error) {
	config := &openapi.Config{
		AccessKeyId:     tea.String(accessKeyID),
		AccessKeySecret: tea.String(accessKeySecret),
		Endpoint:        tea.String("dypnsapi.aliyuncs.com"),
	}
	client, err := dypnsapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("init aliyun sms client: %w", err)
	}
	return &AliyunSender{
		client:       client,
		signName:     signName,
		templateCode: templateCode,
	}, nil
}

// SendCode sends the code through the registered template.
func (a *AliyunSender) SendCode(_ context.Context, phone, code string) error {
	param, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return fmt.Errorf("encode template param: %w", err)
	}
	req := &dypnsapi.SendSmsVerifyCodeRequest{
		PhoneNumber:   tea.String(phone),
		SignName:      tea.String(a.signName),
		TemplateCode:  tea.String(a.templateCode),
		TemplateParam: tea.String(string(param)),
	}
	resp, err := a.client.SendSmsVerifyCodeWithOptions(req, &util.RuntimeOptions{})
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	if resp.Body == nil || resp.Body.Code == nil || *resp.Body.Code != "OK" {
		return fmt.Errorf("sms provider rejected the message: %s", tea.StringValue(resp.Body.Message))
	}
	return nil
}
