package email

// digestTemplate is the HTML shell for the weekly digest. Substitution is
// literal {{token}} replacement, not a templating engine. Conditional
// sections use flat {{#if X}}...{{/if}} blocks that are removed wholesale
// when the guarded article count is zero; blocks must not nest.
const digestTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{subject}}</title>
    <style type="text/css">
      body {
        margin: 0;
        padding: 0;
        background-color: #f8fafc;
        font-family: system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif;
        color: #1e293b;
        line-height: 1.6;
      }
      .container {
        max-width: 640px;
        margin: 0 auto;
        background-color: #ffffff;
        border: 1px solid #e2e8f0;
        border-radius: 8px;
        overflow: hidden;
      }
      .header {
        background-color: #dc2626;
        color: #ffffff;
        padding: 24px;
        text-align: center;
      }
      .header h1 { margin: 0; font-size: 24px; font-weight: 600; }
      .header .date { margin: 8px 0 0 0; font-size: 14px; opacity: 0.9; }
      .content { padding: 24px; }
      h2 {
        color: #1e293b;
        font-size: 20px;
        font-weight: 600;
        margin: 32px 0 16px 0;
        border-bottom: 2px solid #dc2626;
        padding-bottom: 8px;
      }
      .article-card {
        background-color: #f8fafc;
        border: 1px solid #e2e8f0;
        border-radius: 6px;
        padding: 20px;
        margin: 16px 0;
      }
      .article-title { font-size: 18px; font-weight: 600; margin: 0 0 8px 0; }
      .article-meta { font-size: 13px; color: #64748b; margin: 0 0 12px 0; }
      .article-body { font-size: 15px; line-height: 1.6; white-space: pre-wrap; }
      a { color: #dc2626; text-decoration: none; }
      .footer {
        background-color: #f1f5f9;
        padding: 20px 24px;
        text-align: center;
        font-size: 13px;
        color: #64748b;
        border-top: 1px solid #e2e8f0;
      }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{subject}}</h1>
            <p class="date">{{date}}</p>
        </div>
        <div class="content">
{{#if b2c}}
            <h2>For Your Patients</h2>
{{b2c_articles}}
{{/if}}
{{#if b2b}}
            <h2>For Your Practice</h2>
{{b2b_articles}}
{{/if}}
        </div>
        <div class="footer">
            <p>Generated by CardioBrief on {{date}}</p>
        </div>
    </div>
</body>
</html>`

// articleCardTemplate renders one article inside a digest section.
const articleCardTemplate = `            <div class="article-card">
                <h3 class="article-title">{{title}}</h3>
                <p class="article-meta">{{journal}} &middot; <a href="{{url}}">Read the study</a></p>
                <div class="article-body">{{content}}</div>
            </div>`
